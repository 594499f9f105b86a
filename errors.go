package rehash

import "errors"

// ErrInvalidConfiguration is returned by the constructors when the bucket
// count, batch size, load factor or hasher cannot be used.
var ErrInvalidConfiguration = errors.New("invalid configuration")
