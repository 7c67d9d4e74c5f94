package dto

type ActionRequest struct {
	Type   string   `json:"type"`
	Value  []string `json:"value"`
	Target []string `json:"target"`
	Public bool     `json:"public"`
}

type ActionResponse struct {
	ID          int64    `json:"id"`
	Type        string   `json:"type"`
	Value       []string `json:"value"`
	Target      []string `json:"target"`
	Public      bool     `json:"public"`
	Description string   `json:"description"`
}

type ActionTypesResponse struct {
	Types []string `json:"types"`
}
