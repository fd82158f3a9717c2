package database

import "github.com/google/uuid"

type uuidProvider struct{}

// NewUUIDProvider returns an identifier source backed by UUIDv7 values.
func NewUUIDProvider() *uuidProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
