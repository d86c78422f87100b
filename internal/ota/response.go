package ota

import (
	"bytes"
	"encoding/xml"
	"strings"
	"time"
)

const (
	Namespace = "http://www.opentravel.org/OTA/2003/05"
	Version   = "1.0"

	// UnknownEchoToken stands in when the request token cannot be recovered.
	UnknownEchoToken = "UNKNOWN"
	// fallbackRoot names the response when the request root cannot be recovered.
	fallbackRoot = "OTA_ErrorRQ"
)

// ResponseName maps a request root to its RS counterpart.
func ResponseName(root string) string {
	if strings.HasSuffix(root, "RQ") {
		return strings.TrimSuffix(root, "RQ") + "RS"
	}

	return root + "RS"
}

// sniff reads as far as the first element and returns its name and EchoToken.
// It never fails: missing values come back empty.
func sniff(body []byte) (string, string) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false

	for {
		tok, err := dec.Token()
		if err != nil {
			return "", ""
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		for _, attr := range start.Attr {
			if attr.Name.Local == "EchoToken" {
				return start.Name.Local, attr.Value
			}
		}

		return start.Name.Local, ""
	}
}

// RecoverEnvelope returns the best-effort root and EchoToken of a raw body, with
// placeholders for whatever could not be read.
func RecoverEnvelope(body []byte) (string, string) {
	root, token := sniff(body)
	if root == "" {
		root = fallbackRoot
	}

	if token == "" {
		token = UnknownEchoToken
	}

	return root, token
}

func newResponse(root, echoToken string, now time.Time) *Response {
	if echoToken == "" {
		echoToken = UnknownEchoToken
	}

	//nolint:exhaustruct
	return &Response{
		XMLName:   xml.Name{Local: ResponseName(root)},
		Xmlns:     Namespace,
		EchoToken: echoToken,
		TimeStamp: now.UTC().Format(time.RFC3339),
		Version:   Version,
	}
}

func successResponse(root, echoToken string, now time.Time) *Response {
	res := newResponse(root, echoToken, now)
	res.Success = &struct{}{}

	return res
}

func faultResponse(root, echoToken string, fault *Fault, now time.Time) *Response {
	res := newResponse(root, echoToken, now)
	res.Errors = &Errors{
		Error: []Error{{
			Type:    string(fault.Type),
			Code:    fault.Code,
			Message: fault.Message,
		}},
	}

	return res
}

// Marshal renders a response document with the XML declaration.
func (r *Response) Marshal() ([]byte, error) {
	out, err := xml.Marshal(r)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return append([]byte(xml.Header), out...), nil
}
