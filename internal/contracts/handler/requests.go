package handler

import (
	"rentaldocs/internal/contracts"
	"rentaldocs/internal/contracts/validate"
)

// RequestOptions toggles the optional preparation steps.
type RequestOptions struct {
	OnlineSignature bool `json:"onlineSignature"`
	AutoDeclaration bool `json:"autoDeclaration"`
}

func (o RequestOptions) domain() validate.Options {
	return validate.Options{
		OnlineSignature: o.OnlineSignature,
		AutoDeclaration: o.AutoDeclaration,
	}
}

// ValidateRequest carries a payload for template-independent validation.
type ValidateRequest struct {
	Payload contracts.Payload `json:"payload"`
	Options RequestOptions    `json:"options"`
}

// IssueRequest carries a payload bound to a template, used by issue, draft
// and validate-template.
type IssueRequest struct {
	TemplateID string            `json:"templateId"`
	Payload    contracts.Payload `json:"payload"`
	Options    RequestOptions    `json:"options"`
}

type ValidateResponse struct {
	Valid   bool              `json:"valid"`
	Payload contracts.Payload `json:"payload"`
}

type ListResponse struct {
	Contracts []contracts.ContractRecord `json:"contracts"`
}

type DownloadResponse struct {
	URL string `json:"url"`
}
