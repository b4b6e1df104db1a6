package ble

import "fmt"

// OpError is the structured outcome of a scheduled BLE operation (spec
// §4.5: "structured success/failure notifications").
type OpError struct {
	// Timeout is true when the operation didn't complete within its
	// deadline; the executor surfaces this as BluetoothOperationTimeout.
	Timeout bool
	// Code is the platform BLE stack's textual error code, set when
	// Timeout is false.
	Code string
}

func (e *OpError) Error() string {
	if e.Timeout {
		return "BluetoothOperationTimeout"
	}
	return fmt.Sprintf("BluetoothError(%s)", e.Code)
}

func timeoutError() error { return &OpError{Timeout: true} }

func stackError(code string) error { return &OpError{Code: code} }
