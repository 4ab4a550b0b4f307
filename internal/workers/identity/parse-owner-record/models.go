// internal/workers/identity/parse-owner-record/models.go
package parseownerrecord

type Input struct {
	OwnerName       string `json:"ownerName"`
	PropertyAddress string `json:"propertyAddress"`
}

type Output struct {
	DecedentName    string   `json:"decedentName"`
	Representatives []string `json:"representatives"`
	City            string   `json:"city"`
	State           string   `json:"state"`
	IsProbate       bool     `json:"isProbate"`
}
