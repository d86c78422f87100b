package ota

import (
	"errors"
	"fmt"
	"net/http"
)

type FaultType string

const (
	StructuralError FaultType = "StructuralError"
	FieldError      FaultType = "FieldError"
	DateError       FaultType = "DateError"
	BusinessError   FaultType = "BusinessError"
	ProcessingError FaultType = "ProcessingError"
)

// OTA error codes reported in the Code attribute.
var faultCodes = map[FaultType]string{
	StructuralError: "321",
	FieldError:      "320",
	DateError:       "15",
	BusinessError:   "450",
	ProcessingError: "448",
}

// Fault is a protocol level failure rendered into an Errors block.
type Fault struct {
	Type       FaultType
	Code       string
	Message    string
	HTTPStatus int
}

func newFault(t FaultType, format string, v ...any) *Fault {
	status := http.StatusBadRequest
	if t == ProcessingError {
		status = http.StatusInternalServerError
	}

	return &Fault{
		Type:       t,
		Code:       faultCodes[t],
		Message:    fmt.Sprintf(format, v...),
		HTTPStatus: status,
	}
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s (%s): %s", f.Type, f.Code, f.Message)
}

// Retryable reports whether the sender may redeliver the same document unchanged.
func (f *Fault) Retryable() bool {
	return f.Type == ProcessingError
}

func AsFault(err error) *Fault {
	if err == nil {
		return nil
	}

	var fault *Fault

	if errors.As(err, &fault) {
		return fault
	}

	return newFault(ProcessingError, "%s", err.Error())
}
