package app

import "errors"

// ErrWrongUserConfiguration signals that user data is present but
// malformed (missing or invalid quota, bad shape). It is a hard
// configuration defect requiring operator fix, never retried.
var ErrWrongUserConfiguration = errors.New("wrong user configuration")

// ErrInvalidArgument signals bad call-site input: missing user id,
// malformed token, delimiter collision. Caller's fault, immediate
// reject.
var ErrInvalidArgument = errors.New("invalid argument")
