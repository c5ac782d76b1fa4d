// Package validate normalizes contract payloads, derives computed fields and
// enforces the cross-field business rules, failing fast on the first
// violation.
package validate

import (
	"fmt"
	"strings"

	"rentaldocs/internal/contracts"
	"rentaldocs/internal/contracts/clformat"
	"rentaldocs/internal/rut"
	dErrors "rentaldocs/pkg/domain-errors"
)

// Options controls the automatic rules applied after defaults.
type Options struct {
	// OnlineSignature blanks notarization fields to the online marker.
	OnlineSignature bool
	// AutoDeclaration regenerates the funds-origin declaration from the
	// source phrase.
	AutoDeclaration bool
}

// NotarizationOnlineMarker mirrors the fixed value the template layer
// recognizes for mandates granted through online signature.
const NotarizationOnlineMarker = "No aplica (firma online)"

// Normalize trims every string field, normalizes RUTs and drops the guarantor
// section when its flag is off. Mutates the payload in place.
func Normalize(p *contracts.Payload) {
	p.Contract.Type = strings.TrimSpace(p.Contract.Type)
	p.Contract.SigningCity = strings.TrimSpace(p.Contract.SigningCity)
	p.Contract.SigningDate = strings.TrimSpace(p.Contract.SigningDate)
	p.Contract.StartDate = strings.TrimSpace(p.Contract.StartDate)
	p.Contract.EndDate = strings.TrimSpace(p.Contract.EndDate)

	p.Landlord.LegalName = strings.TrimSpace(p.Landlord.LegalName)
	p.Landlord.RUT = rut.Normalize(p.Landlord.RUT)
	p.Landlord.Address = strings.TrimSpace(p.Landlord.Address)
	p.Landlord.Email = strings.TrimSpace(p.Landlord.Email)
	if p.Landlord.Representative != nil {
		p.Landlord.Representative.Name = strings.TrimSpace(p.Landlord.Representative.Name)
		p.Landlord.Representative.RUT = rut.Normalize(p.Landlord.Representative.RUT)
	}

	if p.Owner != nil {
		p.Owner.Name = strings.TrimSpace(p.Owner.Name)
		p.Owner.RUT = rut.Normalize(p.Owner.RUT)
	}

	p.Tenant.Name = strings.TrimSpace(p.Tenant.Name)
	p.Tenant.RUT = rut.Normalize(p.Tenant.RUT)
	p.Tenant.Nationality = strings.TrimSpace(p.Tenant.Nationality)
	p.Tenant.CivilStatus = strings.TrimSpace(p.Tenant.CivilStatus)
	p.Tenant.Email = strings.TrimSpace(p.Tenant.Email)
	p.Tenant.Phone = strings.TrimSpace(p.Tenant.Phone)
	p.Tenant.Address = strings.TrimSpace(p.Tenant.Address)
	if p.Tenant.Representative != nil {
		p.Tenant.Representative.Name = strings.TrimSpace(p.Tenant.Representative.Name)
		p.Tenant.Representative.RUT = rut.Normalize(p.Tenant.Representative.RUT)
	}

	if !p.Flags.HasGuarantor {
		p.Guarantor = nil
	}
	if p.Guarantor != nil {
		p.Guarantor.Name = strings.TrimSpace(p.Guarantor.Name)
		p.Guarantor.RUT = rut.Normalize(p.Guarantor.RUT)
		p.Guarantor.Nationality = strings.TrimSpace(p.Guarantor.Nationality)
		p.Guarantor.CivilStatus = strings.TrimSpace(p.Guarantor.CivilStatus)
		p.Guarantor.Address = strings.TrimSpace(p.Guarantor.Address)
	}

	p.Property.Development = strings.TrimSpace(p.Property.Development)
	p.Property.Address = strings.TrimSpace(p.Property.Address)
	p.Property.Commune = strings.TrimSpace(p.Property.Commune)
	p.Property.City = strings.TrimSpace(p.Property.City)
	p.Property.ApartmentNumber = strings.TrimSpace(p.Property.ApartmentNumber)
	p.Property.HouseNumber = strings.TrimSpace(p.Property.HouseNumber)

	p.Declarations.FundsOriginStatement = strings.TrimSpace(p.Declarations.FundsOriginStatement)
	p.Declarations.FundsOriginSource = strings.TrimSpace(p.Declarations.FundsOriginSource)
}

// ApplyDefaults fills the signing date (today in Chile) and end date
// (start + 1 year) when absent, then runs the automatic rules.
func ApplyDefaults(p *contracts.Payload, opts Options) error {
	if p.Contract.SigningDate == "" {
		p.Contract.SigningDate = clformat.TodayISO()
	}
	if p.Contract.EndDate == "" && p.Contract.StartDate != "" {
		end, err := clformat.AddYears(p.Contract.StartDate, 1)
		if err != nil {
			return dErrors.Wrap(dErrors.CodeInvalidDates, "invalid start date", err)
		}
		p.Contract.EndDate = end
	}
	return ApplyAutomaticRules(p, opts)
}

// ApplyAutomaticRules derives computed fields: the guarantee installment
// schedule, contract-type sublease defaults, online-signature notarization
// blanking, the funds-origin declaration, and the owner-sublease coercions.
func ApplyAutomaticRules(p *contracts.Payload, opts Options) error {
	installments, err := ComputeGuaranteeSchedule(
		p.Guarantee.TotalCLP, p.Guarantee.InitialPaymentCLP, p.Contract.StartDate)
	if err != nil {
		return err
	}
	p.Guarantee.Installments = installments

	applySubleaseDefaults(p)

	if opts.OnlineSignature {
		p.Landlord.Notarization = contracts.Notarization{
			Date:         NotarizationOnlineMarker,
			NotaryOffice: NotarizationOnlineMarker,
			City:         NotarizationOnlineMarker,
			NotaryName:   NotarizationOnlineMarker,
		}
	}

	if opts.AutoDeclaration {
		p.Declarations.FundsOriginStatement = GenerateFundsOriginDeclaration(p)
	}

	if p.Contract.Type == contracts.TypeOwnerSublease {
		applyOwnerSubleaseCoercions(p)
	}
	return nil
}

// ComputeGuaranteeSchedule splits the guarantee remainder after the initial
// payment into at most two installments due one and two months after the
// start date. A non-positive remainder yields no installments.
func ComputeGuaranteeSchedule(totalCLP, initialCLP int64, startDate string) ([]contracts.Installment, error) {
	remainder := totalCLP - initialCLP
	if remainder <= 0 {
		return nil, nil
	}

	first := remainder / 2
	second := remainder - first

	due1, err := clformat.AddMonths(startDate, 1)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInvalidDates, "invalid start date", err)
	}
	due2, err := clformat.AddMonths(startDate, 2)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInvalidDates, "invalid start date", err)
	}

	return []contracts.Installment{
		{Number: 1, AmountCLP: first, DueDate: due1},
		{Number: 2, AmountCLP: second, DueDate: due2},
	}, nil
}

func applySubleaseDefaults(p *contracts.Payload) {
	if p.Sublease == nil {
		p.Sublease = &contracts.Sublease{}
	}
	s := p.Sublease

	switch p.Contract.Type {
	case contracts.TypeOwnerSublease:
		s.Permitted = true
		s.OwnerAuthorizes = true
		s.NotificationRequired = true
		if s.NoticeBusinessDays <= 0 {
			s.NoticeBusinessDays = 10
		}
	default:
		if s.NoticeBusinessDays <= 0 {
			s.NoticeBusinessDays = 30
		}
	}
}

// GenerateFundsOriginDeclaration builds the declaration narrative from the
// payload's parties, signing date and sanitized source phrase.
func GenerateFundsOriginDeclaration(p *contracts.Payload) string {
	source := p.Declarations.FundsOriginSource
	if source == "" {
		source = p.Declarations.FundsOriginStatement
	}
	return fmt.Sprintf(
		"DECLARACIÓN DE ORIGEN DE FONDOS PARA PAGOS ASOCIADOS AL CONTRATO: "+
			"con fecha %s, %s, RUT %s, declara que los fondos destinados al pago de la renta "+
			"y de la garantía del contrato celebrado con %s provienen de actividades lícitas, "+
			"correspondientes a %s.",
		clformat.LongDate(p.Contract.SigningDate),
		p.Tenant.Name,
		rut.FormatForDisplay(p.Tenant.RUT),
		p.Landlord.LegalName,
		contracts.SanitizeFundsSource(source),
	)
}

func applyOwnerSubleaseCoercions(p *contracts.Payload) {
	p.Flags.HasGuarantor = false
	p.Guarantor = nil

	p.Tenant.PersonType = contracts.PersonLegal
	if p.Tenant.Representative == nil {
		p.Tenant.Representative = &contracts.Representative{
			Name: p.Tenant.Name,
			RUT:  p.Tenant.RUT,
		}
	}

	p.Owner = &contracts.Owner{
		Name: p.Landlord.LegalName,
		RUT:  p.Landlord.RUT,
	}
}
