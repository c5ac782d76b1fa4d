package validate

import (
	"rentaldocs/internal/contracts"
	"rentaldocs/internal/contracts/clformat"
	"rentaldocs/internal/rut"
	dErrors "rentaldocs/pkg/domain-errors"
)

// ValidateBusinessRules enforces the cross-field rules, stopping at the first
// violation.
func ValidateBusinessRules(p *contracts.Payload) error {
	if err := validateRUTs(p); err != nil {
		return err
	}
	if err := validateRepresentatives(p); err != nil {
		return err
	}
	if err := validateGuarantorFlag(p); err != nil {
		return err
	}
	if err := validateRequiredFields(p); err != nil {
		return err
	}
	if err := validateDates(p); err != nil {
		return err
	}
	if err := validateAmounts(p); err != nil {
		return err
	}
	if p.Contract.Type == contracts.TypeOwnerSublease {
		return validateOwnerSublease(p)
	}
	return nil
}

func validateRUTs(p *contracts.Payload) error {
	if err := rut.Assert("tenant.rut", p.Tenant.RUT); err != nil {
		return err
	}
	if err := rut.Assert("landlord.rut", p.Landlord.RUT); err != nil {
		return err
	}
	if p.Landlord.Representative != nil {
		if err := rut.Assert("landlord.representative.rut", p.Landlord.Representative.RUT); err != nil {
			return err
		}
	}
	if p.Tenant.Representative != nil {
		if err := rut.Assert("tenant.representative.rut", p.Tenant.Representative.RUT); err != nil {
			return err
		}
	}
	if p.Owner != nil {
		if err := rut.Assert("owner.rut", p.Owner.RUT); err != nil {
			return err
		}
	}
	if p.Flags.HasGuarantor && p.Guarantor != nil {
		if err := rut.Assert("guarantor.rut", p.Guarantor.RUT); err != nil {
			return err
		}
	}
	return nil
}

// validateRepresentatives rejects a representative sharing the entity's own
// RUT. Owner-sublease tenants are exempt: their representative may be
// synthesized from the tenant identity itself.
func validateRepresentatives(p *contracts.Payload) error {
	if p.Landlord.Representative != nil &&
		rut.Normalize(p.Landlord.Representative.RUT) == rut.Normalize(p.Landlord.RUT) {
		return dErrors.New(dErrors.CodeValidation,
			"landlord representative RUT must differ from the landlord's own RUT")
	}
	if p.Contract.Type != contracts.TypeOwnerSublease &&
		p.Tenant.Representative != nil &&
		rut.Normalize(p.Tenant.Representative.RUT) == rut.Normalize(p.Tenant.RUT) {
		return dErrors.New(dErrors.CodeValidation,
			"tenant representative RUT must differ from the tenant's own RUT")
	}
	return nil
}

func validateGuarantorFlag(p *contracts.Payload) error {
	if p.Flags.HasGuarantor && p.Guarantor == nil {
		return dErrors.New(dErrors.CodeValidation,
			"guarantor section required when flags.hasGuarantor is true")
	}
	if !p.Flags.HasGuarantor && p.Guarantor != nil {
		return dErrors.New(dErrors.CodeValidation,
			"guarantor section present while flags.hasGuarantor is false")
	}
	return nil
}

func validateRequiredFields(p *contracts.Payload) error {
	required := []struct {
		field string
		value string
	}{
		{"contract.type", p.Contract.Type},
		{"contract.signingCity", p.Contract.SigningCity},
		{"contract.startDate", p.Contract.StartDate},
		{"landlord.legalName", p.Landlord.LegalName},
		{"landlord.address", p.Landlord.Address},
		{"tenant.name", p.Tenant.Name},
		{"property.address", p.Property.Address},
		{"property.commune", p.Property.Commune},
	}
	if p.Contract.Type == contracts.TypeStandard {
		required = append(required, struct {
			field string
			value string
		}{"tenant.address", p.Tenant.Address})
	}

	for _, r := range required {
		if r.value == "" {
			return dErrors.Newf(dErrors.CodeValidation, "missing required field %s", r.field).
				WithDetails(map[string]string{"field": r.field})
		}
	}

	switch p.Contract.Type {
	case contracts.TypeStandard, contracts.TypeOwnerSublease:
	default:
		return dErrors.Newf(dErrors.CodeValidation, "unknown contract type %q", p.Contract.Type)
	}

	if p.Contract.Type == contracts.TypeStandard && p.Owner == nil {
		return dErrors.New(dErrors.CodeValidation, "owner section required for standard contracts")
	}
	return nil
}

func validateDates(p *contracts.Payload) error {
	start, err := clformat.ParseDate(p.Contract.StartDate)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidDates, "startDate is not a valid ISO date")
	}
	end, err := clformat.ParseDate(p.Contract.EndDate)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidDates, "endDate is not a valid ISO date")
	}
	if !end.After(start) {
		return dErrors.New(dErrors.CodeInvalidDates, "endDate must be after startDate")
	}
	return nil
}

func validateAmounts(p *contracts.Payload) error {
	if p.Rent.AmountCLP <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmounts, "rent.amountCLP must be greater than 0")
	}
	if p.Guarantee.TotalCLP < 0 {
		return dErrors.New(dErrors.CodeInvalidAmounts, "guarantee.totalCLP must be >= 0")
	}
	if p.Guarantee.TotalCLP != p.Rent.AmountCLP {
		return dErrors.New(dErrors.CodeInvalidAmounts, "guarantee.totalCLP must equal rent.amountCLP").
			WithDetails(map[string]int64{
				"guaranteeTotal": p.Guarantee.TotalCLP,
				"rentAmount":     p.Rent.AmountCLP,
			})
	}

	if len(p.Guarantee.Installments) > 0 {
		var sum int64
		for _, c := range p.Guarantee.Installments {
			sum += c.AmountCLP
		}
		total := p.Guarantee.InitialPaymentCLP + sum
		diff := total - p.Guarantee.TotalCLP
		if diff < -1 || diff > 1 {
			return dErrors.New(dErrors.CodeInvalidAmounts,
				"initial payment plus installments must equal guarantee total within 1 CLP").
				WithDetails(map[string]int64{
					"initialPayment":  p.Guarantee.InitialPaymentCLP,
					"installmentsSum": sum,
					"expectedTotal":   p.Guarantee.TotalCLP,
				})
		}
	}
	return nil
}

func validateOwnerSublease(p *contracts.Payload) error {
	if p.Tenant.PersonType != contracts.PersonLegal || p.Tenant.Representative == nil {
		return dErrors.New(dErrors.CodeValidation,
			"owner-sublease contracts require a legal-entity tenant with a representative")
	}
	if p.Owner == nil || rut.Normalize(p.Owner.RUT) != rut.Normalize(p.Landlord.RUT) {
		return dErrors.New(dErrors.CodeValidation,
			"owner-sublease contracts require the owner RUT to match the landlord RUT")
	}
	s := p.Sublease
	if s == nil || !s.Permitted || !s.OwnerAuthorizes {
		return dErrors.New(dErrors.CodeValidation,
			"owner-sublease contracts require sublease permission and owner authorization")
	}
	if !s.NotificationRequired || s.NoticeBusinessDays <= 0 {
		return dErrors.New(dErrors.CodeValidation,
			"owner-sublease contracts require notification with a positive business-day notice period")
	}
	return nil
}
