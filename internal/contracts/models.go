// Package contracts holds the domain model shared by validation, rendering
// and persistence.
package contracts

import (
	"strings"
	"time"
)

// Contract type discriminators.
const (
	TypeStandard      = "standard"
	TypeOwnerSublease = "owner_sublease"
)

// Person type discriminators.
const (
	PersonNatural = "natural"
	PersonLegal   = "legal"
)

// Gender values used to pick gendered Spanish phrasing in templates.
const (
	GenderFemale = "female"
	GenderMale   = "male"
)

// Payload is the full rental-contract input as submitted by a caller. Dates
// are ISO "2006-01-02" strings; amounts in CLP are integer pesos.
type Payload struct {
	Contract     ContractTerms `json:"contract"`
	Landlord     Landlord      `json:"landlord"`
	Owner        *Owner        `json:"owner,omitempty"`
	Tenant       Tenant        `json:"tenant"`
	Guarantor    *Guarantor    `json:"guarantor,omitempty"`
	Property     Property      `json:"property"`
	Rent         Rent          `json:"rent"`
	Guarantee    Guarantee     `json:"guarantee"`
	Sublease     *Sublease     `json:"sublease,omitempty"`
	Flags        Flags         `json:"flags"`
	Declarations Declarations  `json:"declarations"`
}

type ContractTerms struct {
	Type                  string `json:"type"`
	SigningCity           string `json:"signingCity"`
	SigningDate           string `json:"signingDate"`
	StartDate             string `json:"startDate"`
	EndDate               string `json:"endDate"`
	TerminationNoticeDays int    `json:"terminationNoticeDays"`
}

type Representative struct {
	Name string `json:"name"`
	RUT  string `json:"rut"`
}

type Notarization struct {
	Date         string `json:"date"`
	NotaryOffice string `json:"notaryOffice"`
	City         string `json:"city"`
	NotaryName   string `json:"notaryName"`
}

type BankAccount struct {
	Bank         string `json:"bank"`
	Type         string `json:"type"`
	Number       string `json:"number"`
	PaymentEmail string `json:"paymentEmail"`
}

type Landlord struct {
	LegalName      string          `json:"legalName"`
	RUT            string          `json:"rut"`
	Address        string          `json:"address"`
	Email          string          `json:"email"`
	PersonType     string          `json:"personType"`
	Account        BankAccount     `json:"account"`
	Notarization   Notarization    `json:"notarization"`
	Representative *Representative `json:"representative,omitempty"`
}

// Owner is the unit owner appearing in standard contracts where the landlord
// manages on the owner's behalf. In owner-sublease contracts it mirrors the
// landlord identity.
type Owner struct {
	Name   string `json:"name"`
	RUT    string `json:"rut"`
	Gender string `json:"gender"`
}

type Tenant struct {
	Name           string          `json:"name"`
	RUT            string          `json:"rut"`
	PersonType     string          `json:"personType"`
	Nationality    string          `json:"nationality"`
	CivilStatus    string          `json:"civilStatus"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	Gender         string          `json:"gender"`
	Representative *Representative `json:"representative,omitempty"`
}

type Guarantor struct {
	Name        string `json:"name"`
	RUT         string `json:"rut"`
	Nationality string `json:"nationality"`
	CivilStatus string `json:"civilStatus"`
	Address     string `json:"address"`
	Gender      string `json:"gender"`
}

type Property struct {
	Development     string `json:"development"`
	Address         string `json:"address"`
	Commune         string `json:"commune"`
	City            string `json:"city"`
	ApartmentNumber string `json:"apartmentNumber"`
	HouseNumber     string `json:"houseNumber"`
}

type Rent struct {
	AmountCLP            int64   `json:"amountCLP"`
	AmountUF             float64 `json:"amountUF"`
	PaymentDueDay        int     `json:"paymentDueDay"`
	FirstAdjustmentMonth int     `json:"firstAdjustmentMonth"`
	SubleasePercent      float64 `json:"subleasePercent"`
}

type Installment struct {
	Number    int    `json:"number"`
	AmountCLP int64  `json:"amountCLP"`
	DueDate   string `json:"dueDate"`
}

type Guarantee struct {
	TotalCLP          int64         `json:"totalCLP"`
	InitialPaymentCLP int64         `json:"initialPaymentCLP"`
	Installments      []Installment `json:"installments"`
}

type Sublease struct {
	Permitted            bool   `json:"permitted"`
	OwnerAuthorizes      bool   `json:"ownerAuthorizes"`
	NotificationRequired bool   `json:"notificationRequired"`
	NoticeBusinessDays   int    `json:"noticeBusinessDays"`
	AuthorizationText    string `json:"authorizationText"`
	LegalReference       string `json:"legalReference"`
	PrimaryLiabilityText string `json:"primaryLiabilityText"`
	AllowsMultiple       bool   `json:"allowsMultiple"`
	VacancyPeriod        string `json:"vacancyPeriod"`
}

type Flags struct {
	HasGuarantor bool `json:"hasGuarantor"`
	PetAllowed   bool `json:"petAllowed"`
	Furnished    bool `json:"furnished"`
}

type Declarations struct {
	FundsOriginStatement string `json:"fundsOriginStatement"`
	FundsOriginSource    string `json:"fundsOriginSource"`
}

// Template lifecycle statuses.
const (
	TemplateActive   = "active"
	TemplateInactive = "inactive"
)

// TemplateRecord describes a stored DOCX template.
type TemplateRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     int       `json:"version"`
	Status      string    `json:"status"`
	ObjectKey   string    `json:"objectKey"`
	SHA256      string    `json:"sha256"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IsSubleaseTemplate reports whether the template is meant for owner-sublease
// contracts, matched on its name or description.
func (t TemplateRecord) IsSubleaseTemplate() bool {
	return containsAnyFold(t.Name, "sublease", "subarriendo") ||
		containsAnyFold(t.Description, "sublease", "subarriendo")
}

func containsAnyFold(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// Contract record statuses. Records are written once; void exists only as a
// terminal marker.
const (
	ContractIssued = "issued"
	ContractVoid   = "void"
)

// ContractRecord is an issued contract as persisted. Immutable after write.
type ContractRecord struct {
	ID           string            `json:"id"`
	TemplateID   string            `json:"templateId"`
	ActorID      string            `json:"actorId"`
	Status       string            `json:"status"`
	Fingerprint  string            `json:"fingerprint"`
	ObjectKey    string            `json:"objectKey"`
	PDFSHA256    string            `json:"pdfSha256"`
	SizeBytes    int64             `json:"sizeBytes"`
	Payload      Payload           `json:"payload"`
	Replacements map[string]string `json:"replacements,omitempty"`
	IssuedAt     time.Time         `json:"issuedAt"`
}
