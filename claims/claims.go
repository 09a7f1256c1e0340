// Package claims derives the questionnaire claim set embedded in the
// session token from a case reference, question-set code, and language.
//
// Construction is pure apart from the clock sample the caller passes in
// and the freshly generated transaction id: varying the question set alone
// exercises every branch.
package claims

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Form type families selected by the question-set code.
const (
	FormTypeCommunal   = "communal-establishment"
	FormTypeHousehold  = "household"
	FormTypeIndividual = "individual"
)

// Region codes derived from the question-set code.
const (
	RegionEngland = "GB-ENG"
	RegionWales   = "GB-WLS"
)

// DefaultValidity is the token validity window applied when the caller
// passes a non-positive one.
const DefaultValidity = time.Hour

// VariantFlags carries the questionnaire variant switches.
type VariantFlags struct {
	SexualIdentity bool `json:"sexual_identity"`
}

// Claims is the immutable claim set for one authenticated session. Build it
// with [Build]; it is never cached or shared across requests.
type Claims struct {
	CollectionExerciseSID string
	EqID                  string
	FormType              string
	LanguageCode          string
	PeriodID              string
	PeriodStr             string
	RefPStartDate         string
	RefPEndDate           string
	RegionCode            string
	RuName                string
	RuRef                 string
	ReturnBy              string
	TransactionID         string
	UserID                string
	IssuedAt              int64
	ExpiresAt             int64
	VariantFlags          VariantFlags
}

// formTypeRules is the ordered decision table for the form-type family.
// The exact hotel match must win over the h-prefix rule; an unmatched code
// leaves the form type empty.
var formTypeRules = []struct {
	match    func(questionSet string) bool
	formType string
}{
	{func(qs string) bool { return qs == "hotel" }, FormTypeCommunal},
	{func(qs string) bool { return strings.HasPrefix(qs, "h") }, FormTypeHousehold},
	{func(qs string) bool { return strings.HasPrefix(qs, "i") }, FormTypeIndividual},
}

// FormTypeFor returns the form-type family for a question-set code, or the
// empty string when no rule matches. The code is lower-cased before
// inspection.
func FormTypeFor(questionSet string) string {
	qs := strings.ToLower(questionSet)
	for _, rule := range formTypeRules {
		if rule.match(qs) {
			return rule.formType
		}
	}
	return ""
}

// Build constructs the claim set for one authentication success. The
// question set is case-insensitive: a code containing '2' selects the Welsh
// region, a trailing 's' enables the sexual identity variant. The expiry is
// exactly now plus validity; the transaction id is a fresh v4 UUID on every
// call.
func Build(caseReference, questionSet, languageCode string, now time.Time, validity time.Duration) Claims {
	if validity <= 0 {
		validity = DefaultValidity
	}
	qs := strings.ToLower(questionSet)
	iat := now.Unix()

	region := RegionEngland
	if strings.Contains(qs, "2") {
		region = RegionWales
	}

	return Claims{
		CollectionExerciseSID: "0",
		EqID:                  "census",
		FormType:              FormTypeFor(qs),
		LanguageCode:          languageCode,
		PeriodID:              "",
		PeriodStr:             "",
		RefPStartDate:         "2000-01-01",
		RefPEndDate:           "2000-01-01",
		RegionCode:            region,
		RuName:                "",
		RuRef:                 caseReference,
		ReturnBy:              "2000-01-01",
		TransactionID:         uuid.NewString(),
		UserID:                "",
		IssuedAt:              iat,
		ExpiresAt:             iat + int64(validity/time.Second),
		VariantFlags:          VariantFlags{SexualIdentity: strings.HasSuffix(qs, "s")},
	}
}

// Map returns the claim set as the wire claim map the signing stage
// serializes.
func (c Claims) Map() map[string]any {
	return map[string]any{
		"collection_exercise_sid": c.CollectionExerciseSID,
		"eq_id":                   c.EqID,
		"exp":                     c.ExpiresAt,
		"form_type":               c.FormType,
		"iat":                     c.IssuedAt,
		"language_code":           c.LanguageCode,
		"period_id":               c.PeriodID,
		"period_str":              c.PeriodStr,
		"ref_p_start_date":        c.RefPStartDate,
		"ref_p_end_date":          c.RefPEndDate,
		"region_code":             c.RegionCode,
		"ru_name":                 c.RuName,
		"ru_ref":                  c.RuRef,
		"return_by":               c.ReturnBy,
		"tx_id":                   c.TransactionID,
		"user_id":                 c.UserID,
		"variant_flags": map[string]any{
			"sexual_identity": c.VariantFlags.SexualIdentity,
		},
	}
}
