// internal/handlers/signup/models.go
package signup

import "provider-verify/internal/models"

// Request is the signup payload. Address fields are optional and forwarded
// to the customer record verbatim.
type Request struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Company   string `json:"company,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	NPI       string `json:"npi"`
	Address1  string `json:"address1,omitempty"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city,omitempty"`
	Province  string `json:"province,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
}

func (r Request) toNewApplicant() models.NewApplicant {
	return models.NewApplicant{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Company:   r.Company,
		Email:     r.Email,
		Phone:     r.Phone,
		NPI:       r.NPI,
		Address1:  r.Address1,
		Address2:  r.Address2,
		City:      r.City,
		Province:  r.Province,
		Zip:       r.Zip,
		Country:   r.Country,
	}
}

// Response confirms the applicant record was created and the verification
// email dispatched.
type Response struct {
	Success    bool   `json:"success"`
	CustomerID string `json:"customerId"`
	Message    string `json:"message"`
}
