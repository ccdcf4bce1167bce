package types

import "time"

// epoch2021 is January 1, 2021 UTC in Unix seconds, the reference point
// for header timestamps.
const epoch2021 = 1609459200

// CurrentTime returns seconds since epoch2021. It is used only to stamp
// headers; it must never be used to order decisions.
func CurrentTime() uint64 {
	return uint64(time.Now().Unix()) - epoch2021
}
