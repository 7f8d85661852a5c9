package health

import (
	"github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/go-openapi/validate"

	"cortx-e2e/common"
)

var healthStatusEnum = []interface{}{
	common.HealthOnline.String(),
	common.HealthOffline.String(),
	common.HealthDegraded.String(),
	common.HealthFailed.String(),
	common.HealthUnknown.String(),
}

// LoginRequest login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate validates this login request
func (m *LoginRequest) Validate(formats strfmt.Registry) error {
	var res []error
	if err := validate.RequiredString("username", "body", m.Username); err != nil {
		res = append(res, err)
	}
	if err := validate.RequiredString("password", "body", m.Password); err != nil {
		res = append(res, err)
	}
	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

// ResourceHealth health of one cluster resource
type ResourceHealth struct {
	// resource kind, node, cluster, site or rack
	Resource string `json:"resource"`

	ID string `json:"id"`

	Status string `json:"status"`

	LastUpdated strfmt.DateTime `json:"last_updated,omitempty"`
}

// Validate validates this resource health
func (m *ResourceHealth) Validate(formats strfmt.Registry) error {
	var res []error
	if err := validate.RequiredString("resource", "body", m.Resource); err != nil {
		res = append(res, err)
	}
	if err := validate.RequiredString("id", "body", m.ID); err != nil {
		res = append(res, err)
	}
	if err := validate.RequiredString("status", "body", m.Status); err != nil {
		res = append(res, err)
	} else if err := validate.EnumCase("status", "body", m.Status, healthStatusEnum, true); err != nil {
		res = append(res, err)
	}
	if !swag.IsZero(m.LastUpdated) {
		if err := validate.FormatOf("last_updated", "body", "date-time", m.LastUpdated.String(), formats); err != nil {
			res = append(res, err)
		}
	}
	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

// MarshalBinary interface implementation
func (m *ResourceHealth) MarshalBinary() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return swag.WriteJSON(m)
}

// UnmarshalBinary interface implementation
func (m *ResourceHealth) UnmarshalBinary(b []byte) error {
	var res ResourceHealth
	if err := swag.ReadJSON(b, &res); err != nil {
		return err
	}
	*m = res
	return nil
}

// HealthResponse health of every resource of a kind
type HealthResponse struct {
	Data []*ResourceHealth `json:"data"`
}

// Validate validates this health response
func (m *HealthResponse) Validate(formats strfmt.Registry) error {
	var res []error
	if err := validate.Required("data", "body", m.Data); err != nil {
		res = append(res, err)
	}
	for i := range m.Data {
		if swag.IsZero(m.Data[i]) {
			continue
		}
		if err := m.Data[i].Validate(formats); err != nil {
			if ve, ok := err.(*errors.Validation); ok {
				ve.ValidateName("data" + "." + swag.FormatInt64(int64(i)))
				res = append(res, ve)
				continue
			}
			res = append(res, err)
		}
	}
	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

// UnmarshalBinary interface implementation
func (m *HealthResponse) UnmarshalBinary(b []byte) error {
	var res HealthResponse
	if err := swag.ReadJSON(b, &res); err != nil {
		return err
	}
	*m = res
	return nil
}

// ErrorResponse error payload
type ErrorResponse struct {
	ErrorCode int64  `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
}
