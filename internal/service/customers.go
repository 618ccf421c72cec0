package service

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/kinternationals/estimator/internal/store"
)

const (
	defaultCountry        = "India"
	customerRecentEntries = 5
)

type CustomerInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
	Notes   string `json:"notes"`
}

func (in *CustomerInput) normalize() {
	in.Name = trim(in.Name)
	in.Email = trim(in.Email)
	in.Phone = trim(in.Phone)
	in.Address = trim(in.Address)
	in.City = trim(in.City)
	in.State = trim(in.State)
	in.ZipCode = trim(in.ZipCode)
	in.Country = trim(in.Country)
	if in.Country == "" {
		in.Country = defaultCountry
	}
}

func (in *CustomerInput) validate() error {
	return validateStruct(in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(2, 0)),
		validation.Field(&in.Email, is.EmailFormat),
	).orNil()
}

func (in CustomerInput) apply(c *store.Customer) {
	c.Name = in.Name
	c.Email = in.Email
	c.Phone = in.Phone
	c.Address = in.Address
	c.City = in.City
	c.State = in.State
	c.ZipCode = in.ZipCode
	c.Country = in.Country
	c.Notes = in.Notes
}

// CustomerDetail is a customer with its latest estimates.
type CustomerDetail struct {
	store.Customer
	Recent []store.EstimateSummary
}

type Customers struct {
	store *store.Store
}

func NewCustomers(s *store.Store) *Customers {
	return &Customers{store: s}
}

func (s *Customers) List(ctx context.Context) ([]store.Customer, error) {
	return s.store.ListCustomers(ctx)
}

func (s *Customers) Get(ctx context.Context, id string) (CustomerDetail, error) {
	c, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return CustomerDetail{}, err
	}
	recent, err := s.store.RecentEstimatesForCustomer(ctx, id, customerRecentEntries)
	if err != nil {
		return CustomerDetail{}, err
	}
	return CustomerDetail{Customer: c, Recent: recent}, nil
}

// Create stores a new customer owned by userID.
func (s *Customers) Create(ctx context.Context, in CustomerInput, userID string) (store.Customer, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return store.Customer{}, err
	}

	c := store.Customer{CreatedBy: userID}
	in.apply(&c)
	if err := s.store.CreateCustomer(ctx, &c); err != nil {
		return store.Customer{}, err
	}
	return c, nil
}

func (s *Customers) Update(ctx context.Context, id string, in CustomerInput) (store.Customer, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return store.Customer{}, err
	}

	c, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return store.Customer{}, err
	}
	in.apply(&c)
	if err := s.store.UpdateCustomer(ctx, &c); err != nil {
		return store.Customer{}, err
	}
	return c, nil
}

func (s *Customers) Delete(ctx context.Context, id string) error {
	return s.store.DeactivateCustomer(ctx, id)
}
