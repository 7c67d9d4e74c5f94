package dto

type RuleRequest struct {
	Type    string   `json:"type"`
	Regexes []string `json:"regexes"`
	Actions []int64  `json:"actions"`
	Public  bool     `json:"public"`
}

type RuleResponse struct {
	ID          int64    `json:"id"`
	Type        string   `json:"type"`
	Regexes     []string `json:"regexes"`
	Actions     []int64  `json:"actions"`
	Public      bool     `json:"public"`
	Description string   `json:"description"`
}

type RuleTypesResponse struct {
	Types []string `json:"types"`
}
