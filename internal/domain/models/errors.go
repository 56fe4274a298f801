package models

import "errors"

// ErrNotFound indicates the referenced product, order or voucher does not exist.
var ErrNotFound = errors.New("not found")

// ErrInsufficientStock indicates a reservation would drive a stock counter below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrInvalidTransition indicates a status change that the state machine does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrValidation indicates malformed input such as an empty item list or a non-positive quantity.
var ErrValidation = errors.New("validation failed")
