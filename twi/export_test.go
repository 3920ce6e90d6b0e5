package twi

// PEC exposes the packet error code computation to external tests.
var PEC = pec
