package domain

import "errors"

var (
	ErrSymbolNotFound      = errors.New("symbol not found")
	ErrAssetNotFound       = errors.New("asset not found")
	ErrInsufficientBalance = errors.New("available balance not enough")
	ErrOrderRejected       = errors.New("order rejected")
	ErrUnprotectedPosition = errors.New("position left without protective order")
	ErrFeedParse           = errors.New("malformed mark price payload")
	ErrTickInProgress      = errors.New("previous tick still running")
	ErrNoMarkPrice         = errors.New("no mark price received yet")
)
