package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"rentaldocs/internal/contracts"
	"rentaldocs/internal/contracts/clformat"
	dErrors "rentaldocs/pkg/domain-errors"
)

// NotarizationOnlineMarker is the fixed value written into notarization
// fields when the landlord mandate was granted through online signature.
const NotarizationOnlineMarker = "No aplica (firma online)"

// placeholderToken matches [[SECTION.FIELD]] and indexed [[SECTION.FIELD[n]]]
// forms. Lazy so adjacent tokens never merge into one match.
var placeholderToken = regexp.MustCompile(`\[\[[A-Z0-9_.\[\]]+?\]\]`)

// Engine substitutes catalog placeholders with payload values.
type Engine struct {
	catalog *Catalog
}

func NewEngine(catalog *Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// resolver produces the replacement for one token, or reports the value
// absent so the literal token survives for residual detection.
type resolver func(p *contracts.Payload) (string, bool)

// BuildReplacements resolves every allowed catalog token against the payload.
// Tokens whose value is absent are omitted from the result.
func (e *Engine) BuildReplacements(p *contracts.Payload) map[string]string {
	out := make(map[string]string, len(e.catalog.Allowed))
	for _, token := range e.catalog.Allowed {
		resolve, ok := resolvers[token]
		if !ok {
			continue
		}
		if value, present := resolve(p); present {
			out[token] = value
		}
	}
	return out
}

// ApplyReplacements performs literal substring replacement of every mapped
// token across the text.
func (e *Engine) ApplyReplacements(text string, replacements map[string]string) string {
	for token, value := range replacements {
		text = strings.ReplaceAll(text, token, value)
	}
	return text
}

// ValidateCatalogSyntax fails when the text carries any placeholder-shaped
// token that is neither in the allow-list nor conditional syntax. Runs before
// substitution so authoring errors surface regardless of the payload used.
func (e *Engine) ValidateCatalogSyntax(text string) error {
	var invalid []string
	for _, token := range placeholderToken.FindAllString(text, -1) {
		if IsControlToken(token) || e.catalog.Allows(token) {
			continue
		}
		invalid = append(invalid, token)
	}
	if len(invalid) > 0 {
		return dErrors.New(dErrors.CodeValidation, "template contains placeholders outside the catalog").
			WithDetails(uniqueSorted(invalid))
	}
	return nil
}

// FindResidualPlaceholders lists the placeholder-shaped tokens still present
// after substitution, deduplicated and sorted.
func FindResidualPlaceholders(text string) []string {
	return uniqueSorted(placeholderToken.FindAllString(text, -1))
}

// AssertNoResidualPlaceholders fails with MISSING_PLACEHOLDERS when any token
// survived substitution.
func AssertNoResidualPlaceholders(text string) error {
	residual := FindResidualPlaceholders(text)
	if len(residual) == 0 {
		return nil
	}
	return dErrors.New(dErrors.CodeMissingPlaceholders, "placeholders left unreplaced").
		WithDetails(residual).
		WithHint("fill in the missing payload fields or fix the template")
}

// AssertGuarantorPlaceholdersProtected fails when guarantor tokens appear in
// text while the guarantor flag is off, meaning the template author forgot to
// wrap them in an IF.GUARANTOR block.
func AssertGuarantorPlaceholdersProtected(text string, hasGuarantor bool) error {
	if hasGuarantor {
		return nil
	}
	if strings.Contains(text, "[[GUARANTOR.") {
		return dErrors.New(dErrors.CodeGuarantorOutsideIf,
			"guarantor placeholders found outside a conditional block").
			WithHint("wrap GUARANTOR placeholders in [[IF.GUARANTOR]] ... [[ENDIF.GUARANTOR]]")
	}
	return nil
}

func str(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	return s, true
}

func longDate(iso string) (string, bool) {
	if iso == "" {
		return "", false
	}
	return clformat.LongDate(iso), true
}

func positiveInt(n int) (string, bool) {
	if n <= 0 {
		return "", false
	}
	return strconv.Itoa(n), true
}

func genderedTitle(gender string) string {
	switch gender {
	case contracts.GenderMale:
		return "Sr."
	case contracts.GenderFemale:
		return "Sra."
	default:
		return "Sr./Sra."
	}
}

func genderedDomiciled(gender string) string {
	switch gender {
	case contracts.GenderMale:
		return "domiciliado"
	case contracts.GenderFemale:
		return "domiciliada"
	default:
		return "domiciliado/a"
	}
}

func genderedTenantRole(gender string) string {
	switch gender {
	case contracts.GenderMale:
		return "arrendatario"
	case contracts.GenderFemale:
		return "arrendataria"
	default:
		return "arrendatario/a"
	}
}

func unitLabel(p *contracts.Payload) string {
	if apt := strings.TrimSpace(p.Property.ApartmentNumber); apt != "" {
		return "Departamento " + apt
	}
	if house := strings.TrimSpace(p.Property.HouseNumber); house != "" {
		return "Casa " + house
	}
	return "sin número de unidad"
}

// notarizationDescription narrates how the landlord mandate was granted;
// online-signature mandates get a distinct phrasing.
func notarizationDescription(p *contracts.Payload) (string, bool) {
	n := p.Landlord.Notarization
	if n.Date == "" {
		return "", false
	}
	date := clformat.LongDate(n.Date)
	office := strings.ToLower(n.NotaryOffice)
	name := strings.ToLower(n.NotaryName)
	if strings.Contains(office, "firma online") || strings.Contains(name, "firma online") {
		return "conforme a mandato vigente y proceso de firma electrónica avanzada de fecha " + date, true
	}
	return fmt.Sprintf("en la escritura pública de fecha %s, otorgada en la notaría %s de %s, notario/a %s",
		date, n.NotaryOffice, n.City, n.NotaryName), true
}

func installment(p *contracts.Payload, n int) *contracts.Installment {
	for i := range p.Guarantee.Installments {
		if p.Guarantee.Installments[i].Number == n {
			return &p.Guarantee.Installments[i]
		}
	}
	return nil
}

func installmentAmount(n int) resolver {
	return func(p *contracts.Payload) (string, bool) {
		if c := installment(p, n); c != nil {
			return clformat.CLP(c.AmountCLP), true
		}
		return "-", true
	}
}

func installmentDueDate(n int) resolver {
	return func(p *contracts.Payload) (string, bool) {
		if c := installment(p, n); c != nil && c.DueDate != "" {
			return clformat.LongDate(c.DueDate), true
		}
		return "-", true
	}
}

func yesNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}

// Sublease clause fallbacks used when the payload leaves the text fields
// empty.
const (
	defaultSubleaseAuthorization = "La parte arrendataria no podrá subarrendar total o parcialmente " +
		"el inmueble sin autorización previa y expresa del propietario."
	defaultSubleaseLegalReference = "Artículo 1973 del Código Civil y normativa aplicable."
	defaultSubleasePrimaryLiability = "En todo caso, la parte arrendataria mantendrá responsabilidad " +
		"directa y principal frente a la arrendadora por todas las obligaciones del contrato."
)

// resolvers is the closed token table. Every entry resolves one catalog token
// with its formatting baked in; anything not listed here cannot be resolved.
var resolvers = map[string]resolver{
	"[[CONTRACT.TYPE]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Contract.Type)
	},
	"[[CONTRACT.SIGNING_CITY]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Contract.SigningCity)
	},
	"[[CONTRACT.SIGNING_DATE]]": func(p *contracts.Payload) (string, bool) {
		return longDate(p.Contract.SigningDate)
	},
	"[[CONTRACT.SIGNING_DATE_LONG]]": func(p *contracts.Payload) (string, bool) {
		if p.Contract.SigningDate == "" {
			return "", false
		}
		return clformat.WeekdayDate(p.Contract.SigningDate), true
	},
	"[[CONTRACT.START_DATE]]": func(p *contracts.Payload) (string, bool) {
		return longDate(p.Contract.StartDate)
	},
	"[[CONTRACT.END_DATE]]": func(p *contracts.Payload) (string, bool) {
		return longDate(p.Contract.EndDate)
	},
	"[[CONTRACT.TERMINATION_NOTICE_DAYS]]": func(p *contracts.Payload) (string, bool) {
		if p.Contract.TerminationNoticeDays <= 0 {
			return "30", true
		}
		return strconv.Itoa(p.Contract.TerminationNoticeDays), true
	},

	"[[LANDLORD.LEGAL_NAME]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Landlord.LegalName)
	},
	"[[LANDLORD.RUT]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Landlord.RUT)
	},
	"[[LANDLORD.ADDRESS]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Landlord.Address)
	},
	"[[LANDLORD.EMAIL]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Landlord.Email)
	},
	"[[LANDLORD.ACCOUNT.BANK]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Landlord.Account.Bank)
	},
	"[[LANDLORD.ACCOUNT.TYPE]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Landlord.Account.Type)
	},
	"[[LANDLORD.ACCOUNT.NUMBER]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Landlord.Account.Number)
	},
	"[[LANDLORD.ACCOUNT.PAYMENT_EMAIL]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Landlord.Account.PaymentEmail)
	},
	"[[LANDLORD.NOTARIZATION.DATE]]": func(p *contracts.Payload) (string, bool) {
		if p.Landlord.Notarization.Date == NotarizationOnlineMarker {
			return NotarizationOnlineMarker, true
		}
		return longDate(p.Landlord.Notarization.Date)
	},
	"[[LANDLORD.NOTARIZATION.NOTARY_OFFICE]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Landlord.Notarization.NotaryOffice)
	},
	"[[LANDLORD.NOTARIZATION.CITY]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Landlord.Notarization.City)
	},
	"[[LANDLORD.NOTARIZATION.NOTARY_NAME]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Landlord.Notarization.NotaryName)
	},
	"[[LANDLORD.NOTARIZATION.DESCRIPTION]]": notarizationDescription,
	"[[LANDLORD.REPRESENTATIVE.NAME]]": func(p *contracts.Payload) (string, bool) {
		if p.Landlord.Representative == nil {
			return "", false
		}
		return str(p.Landlord.Representative.Name)
	},
	"[[LANDLORD.REPRESENTATIVE.RUT]]": func(p *contracts.Payload) (string, bool) {
		if p.Landlord.Representative == nil {
			return "", false
		}
		return str(p.Landlord.Representative.RUT)
	},

	"[[OWNER.NAME]]": func(p *contracts.Payload) (string, bool) {
		if p.Owner == nil {
			return "", false
		}
		return str(p.Owner.Name)
	},
	"[[OWNER.RUT]]": func(p *contracts.Payload) (string, bool) {
		if p.Owner == nil {
			return "", false
		}
		return str(p.Owner.RUT)
	},
	"[[OWNER.TITLE]]": func(p *contracts.Payload) (string, bool) {
		if p.Owner == nil {
			return "", false
		}
		return genderedTitle(p.Owner.Gender), true
	},
	"[[OWNER.DOMICILED]]": func(p *contracts.Payload) (string, bool) {
		if p.Owner == nil {
			return "", false
		}
		return genderedDomiciled(p.Owner.Gender), true
	},

	"[[TENANT.NAME]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Tenant.Name)
	},
	"[[TENANT.RUT]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Tenant.RUT)
	},
	"[[TENANT.NATIONALITY]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Tenant.Nationality)
	},
	"[[TENANT.CIVIL_STATUS]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Tenant.CivilStatus)
	},
	"[[TENANT.EMAIL]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Tenant.Email)
	},
	"[[TENANT.PHONE]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Tenant.Phone)
	},
	"[[TENANT.ADDRESS]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Tenant.Address)
	},
	"[[TENANT.TITLE]]": func(p *contracts.Payload) (string, bool) {
		return genderedTitle(p.Tenant.Gender), true
	},
	"[[TENANT.ROLE]]": func(p *contracts.Payload) (string, bool) {
		return genderedTenantRole(p.Tenant.Gender), true
	},
	"[[TENANT.DOMICILED]]": func(p *contracts.Payload) (string, bool) {
		return genderedDomiciled(p.Tenant.Gender), true
	},
	"[[TENANT.REPRESENTATIVE.NAME]]": func(p *contracts.Payload) (string, bool) {
		if p.Tenant.Representative == nil {
			return "", false
		}
		return str(p.Tenant.Representative.Name)
	},
	"[[TENANT.REPRESENTATIVE.RUT]]": func(p *contracts.Payload) (string, bool) {
		if p.Tenant.Representative == nil {
			return "", false
		}
		return str(p.Tenant.Representative.RUT)
	},

	"[[GUARANTOR.NAME]]": func(p *contracts.Payload) (string, bool) {
		if p.Guarantor == nil {
			return "", false
		}
		return str(p.Guarantor.Name)
	},
	"[[GUARANTOR.RUT]]": func(p *contracts.Payload) (string, bool) {
		if p.Guarantor == nil {
			return "", false
		}
		return str(p.Guarantor.RUT)
	},
	"[[GUARANTOR.NATIONALITY]]": func(p *contracts.Payload) (string, bool) {
		if p.Guarantor == nil {
			return "", false
		}
		return str(p.Guarantor.Nationality)
	},
	"[[GUARANTOR.CIVIL_STATUS]]": func(p *contracts.Payload) (string, bool) {
		if p.Guarantor == nil {
			return "", false
		}
		return str(p.Guarantor.CivilStatus)
	},
	"[[GUARANTOR.ADDRESS]]": func(p *contracts.Payload) (string, bool) {
		if p.Guarantor == nil {
			return "", false
		}
		return str(p.Guarantor.Address)
	},
	"[[GUARANTOR.TITLE]]": func(p *contracts.Payload) (string, bool) {
		if p.Guarantor == nil {
			return "", false
		}
		return genderedTitle(p.Guarantor.Gender), true
	},
	"[[GUARANTOR.DOMICILED]]": func(p *contracts.Payload) (string, bool) {
		if p.Guarantor == nil {
			return "", false
		}
		return genderedDomiciled(p.Guarantor.Gender), true
	},

	"[[PROPERTY.DEVELOPMENT]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Property.Development)
	},
	"[[PROPERTY.ADDRESS]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Property.Address)
	},
	"[[PROPERTY.COMMUNE]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Property.Commune)
	},
	"[[PROPERTY.CITY]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Property.City)
	},
	"[[PROPERTY.UNIT_LABEL]]": func(p *contracts.Payload) (string, bool) {
		return unitLabel(p), true
	},

	"[[RENT.AMOUNT]]": func(p *contracts.Payload) (string, bool) {
		if p.Rent.AmountCLP <= 0 {
			return "", false
		}
		return clformat.CLP(p.Rent.AmountCLP), true
	},
	"[[RENT.AMOUNT_UF]]": func(p *contracts.Payload) (string, bool) {
		if p.Rent.AmountUF <= 0 {
			return "", false
		}
		return clformat.UF(p.Rent.AmountUF), true
	},
	"[[RENT.PAYMENT_DUE_DAY]]": func(p *contracts.Payload) (string, bool) {
		return positiveInt(p.Rent.PaymentDueDay)
	},
	"[[RENT.FIRST_ADJUSTMENT_MONTH]]": func(p *contracts.Payload) (string, bool) {
		return positiveInt(p.Rent.FirstAdjustmentMonth)
	},
	"[[RENT.SUBLEASE_PERCENT]]": func(p *contracts.Payload) (string, bool) {
		pct := p.Rent.SubleasePercent
		if pct <= 0 {
			pct = 91
		}
		return strconv.FormatFloat(pct, 'f', -1, 64) + "%", true
	},

	"[[GUARANTEE.TOTAL]]": func(p *contracts.Payload) (string, bool) {
		if p.Guarantee.TotalCLP < 0 {
			return "", false
		}
		return clformat.CLP(p.Guarantee.TotalCLP), true
	},
	"[[GUARANTEE.INITIAL_PAYMENT]]": func(p *contracts.Payload) (string, bool) {
		if p.Guarantee.InitialPaymentCLP < 0 {
			return "", false
		}
		return clformat.CLP(p.Guarantee.InitialPaymentCLP), true
	},
	"[[GUARANTEE.INSTALLMENTS[1].AMOUNT]]":   installmentAmount(1),
	"[[GUARANTEE.INSTALLMENTS[2].AMOUNT]]":   installmentAmount(2),
	"[[GUARANTEE.INSTALLMENTS[1].DUE_DATE]]": installmentDueDate(1),
	"[[GUARANTEE.INSTALLMENTS[2].DUE_DATE]]": installmentDueDate(2),

	"[[SUBLEASE.PERMITTED_LABEL]]": func(p *contracts.Payload) (string, bool) {
		if p.Sublease != nil && p.Sublease.Permitted {
			return "Permitido", true
		}
		return "No permitido", true
	},
	"[[SUBLEASE.AUTHORIZATION_TEXT]]": func(p *contracts.Payload) (string, bool) {
		if p.Sublease != nil && p.Sublease.AuthorizationText != "" {
			return p.Sublease.AuthorizationText, true
		}
		return defaultSubleaseAuthorization, true
	},
	"[[SUBLEASE.NOTICE_BUSINESS_DAYS]]": func(p *contracts.Payload) (string, bool) {
		if p.Sublease != nil && p.Sublease.NoticeBusinessDays > 0 {
			return strconv.Itoa(p.Sublease.NoticeBusinessDays), true
		}
		return "10", true
	},
	"[[SUBLEASE.ALLOWS_MULTIPLE_LABEL]]": func(p *contracts.Payload) (string, bool) {
		return yesNo(p.Sublease != nil && p.Sublease.AllowsMultiple), true
	},
	"[[SUBLEASE.VACANCY_PERIOD_LABEL]]": func(p *contracts.Payload) (string, bool) {
		return yesNo(p.Sublease != nil && p.Sublease.VacancyPeriod != ""), true
	},
	"[[SUBLEASE.LEGAL_REFERENCE]]": func(p *contracts.Payload) (string, bool) {
		if p.Sublease != nil && p.Sublease.LegalReference != "" {
			return p.Sublease.LegalReference, true
		}
		return defaultSubleaseLegalReference, true
	},
	"[[SUBLEASE.PRIMARY_LIABILITY]]": func(p *contracts.Payload) (string, bool) {
		if p.Sublease != nil && p.Sublease.PrimaryLiabilityText != "" {
			return p.Sublease.PrimaryLiabilityText, true
		}
		return defaultSubleasePrimaryLiability, true
	},

	"[[DECLARATIONS.FUNDS_ORIGIN_SOURCE]]": func(p *contracts.Payload) (string, bool) {
		source := p.Declarations.FundsOriginSource
		if source == "" {
			source = p.Declarations.FundsOriginStatement
		}
		return contracts.SanitizeFundsSource(source), true
	},
	"[[DECLARATIONS.FUNDS_ORIGIN_STATEMENT]]": func(p *contracts.Payload) (string, bool) {
		return str(p.Declarations.FundsOriginStatement)
	},
}
