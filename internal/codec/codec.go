// internal/codec/codec.go
//
// Content configuration: media type → encoder / decoder.
//
// Context
// -------
// The default configuration registers one JSON coder for
// `application/json`.  Dates are not given a custom format; `time.Time`
// marshals through its own MarshalJSON (RFC 3339 with nanoseconds), so any
// type that defines its own JSON form keeps it.
//
// Decode also runs go-playground/validator over the target so handlers
// receive either a valid body or a 400.
package codec

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/yanizio/billing-api/internal/apperr"
)

// MediaJSON is the default media type.
const MediaJSON = "application/json"

// Encoder writes v to w.
type Encoder interface {
	Encode(w io.Writer, v any) error
}

// Decoder reads r into v.
type Decoder interface {
	Decode(r io.Reader, v any) error
}

// JSON encodes with encoding/json and leaves time values to their native
// encoding.
type JSON struct {
	// DisallowUnknown rejects request fields the target does not declare.
	DisallowUnknown bool
}

func (j JSON) Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (j JSON) Decode(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	if j.DisallowUnknown {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(v)
}

// Config maps media types to coders.
type Config struct {
	encoders map[string]Encoder
	decoders map[string]Decoder
	validate *validator.Validate
}

// New returns an empty configuration.
func New() *Config {
	return &Config{
		encoders: make(map[string]Encoder),
		decoders: make(map[string]Decoder),
		validate: validator.New(),
	}
}

// Default returns a configuration with JSON registered.
func Default() *Config {
	c := New()
	c.UseEncoder(MediaJSON, JSON{})
	c.UseDecoder(MediaJSON, JSON{DisallowUnknown: true})
	return c
}

// UseEncoder replaces the encoder for media.
func (c *Config) UseEncoder(media string, e Encoder) { c.encoders[media] = e }

// UseDecoder replaces the decoder for media.
func (c *Config) UseDecoder(media string, d Decoder) { c.decoders[media] = d }

// Encoder returns the encoder for media.
func (c *Config) Encoder(media string) (Encoder, bool) {
	e, ok := c.encoders[media]
	return e, ok
}

// Respond writes v as JSON with status.
func (c *Config) Respond(w http.ResponseWriter, status int, v any) error {
	enc, ok := c.encoders[MediaJSON]
	if !ok {
		return errors.New("codec: no JSON encoder configured")
	}
	w.Header().Set("Content-Type", MediaJSON+"; charset=utf-8")
	w.WriteHeader(status)
	return enc.Encode(w, v)
}

// Decode reads the request body into v using the decoder registered for its
// Content-Type, then validates v.  A missing Content-Type is treated as
// JSON.
func (c *Config) Decode(r *http.Request, v any) error {
	media := MediaJSON
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return apperr.BadRequest("malformed Content-Type", err)
		}
		media = mt
	}
	dec, ok := c.decoders[media]
	if !ok {
		return apperr.Unsupported("unsupported content type " + media)
	}
	if err := dec.Decode(r.Body, v); err != nil {
		return apperr.BadRequest("malformed request body", err)
	}
	if err := c.validate.Struct(v); err != nil {
		var inv *validator.InvalidValidationError
		if errors.As(err, &inv) {
			// v is not a struct; nothing to validate.
			return nil
		}
		return apperr.BadRequest("invalid request body", err)
	}
	return nil
}
