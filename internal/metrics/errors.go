package metrics

import "errors"

// ErrRegister is wrapped by NewManager when a collector cannot be registered,
// typically because the registry already holds a metric of the same name.
var ErrRegister = errors.New("metrics register failed")
