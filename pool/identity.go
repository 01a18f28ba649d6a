package pool

import "reflect"

// connIdentity returns the pointer identity of a *sql.Conn (or any pointer
// value), used so LeaseProxy.Identity can key on the raw connection rather
// than on whichever LeaseHandle/proxy currently wraps it.
func connIdentity(p any) uintptr {
	return reflect.ValueOf(p).Pointer()
}
