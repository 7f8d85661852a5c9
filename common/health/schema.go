package health

import (
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/spec"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/validate"
	"github.com/pkg/errors"
)

//go:embed swagger.json
var swaggerJSON []byte

var (
	docOnce sync.Once
	doc     *loads.Document
	docErr  error
)

func apiDocument() (*loads.Document, error) {
	docOnce.Do(func() {
		var d *loads.Document
		d, docErr = loads.Analyzed(json.RawMessage(swaggerJSON), "")
		if docErr != nil {
			return
		}
		doc, docErr = d.Expanded()
	})
	return doc, docErr
}

func definition(name string) (*spec.Schema, error) {
	d, err := apiDocument()
	if err != nil {
		return nil, errors.Wrap(err, "loading API document")
	}
	schema, ok := d.Spec().Definitions[name]
	if !ok {
		return nil, errors.Errorf("no definition %s in API document", name)
	}
	return &schema, nil
}

// ValidatePayload checks a raw JSON payload against a definition of the API document
func ValidatePayload(definitionName string, payload []byte) error {
	schema, err := definition(definitionName)
	if err != nil {
		return err
	}
	var data interface{}
	if err := json.Unmarshal(payload, &data); err != nil {
		return errors.Wrapf(err, "decoding %s payload", definitionName)
	}
	return validate.AgainstSchema(schema, data, strfmt.Default)
}
