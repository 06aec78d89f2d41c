// Package store persists a param.Registry to a fixed-size byte region.
//
// # Wire Format
//
// The region is laid out as
//
//	[4-byte version tag][field 1][field 2]...[field n]
//
// where every field occupies exactly its parameter's capacity, NUL padded,
// in registry order. Separators occupy no bytes. The region is valid only
// when the leading four bytes equal the compiled-in version tag; any
// mismatch (blank flash, incompatible firmware) invalidates the whole
// region and Load leaves every buffer untouched.
//
// # Regions
//
// Region abstracts the non-volatile byte storage. MemRegion emulates the
// EEPROM cache-and-commit model in RAM; FileRegion keeps the image in a
// file and commits with a write-to-temp-then-rename so a crash never leaves
// a half-written file behind.
//
// # Usage Example
//
//	region, err := store.OpenFile("/var/lib/apportal/config.bin", store.RegionSize(reg))
//	if err != nil {
//	    return err
//	}
//	s := store.New(region, "v2.0")
//	if err := s.Load(reg); store.IsVersionMismatch(err) {
//	    reg.ResetToDefaults()
//	}
//
// # Error Handling
//
// Errors are *StoreError values classified by ErrorType. Save failures are
// not retried: the device keeps running on its in-memory values until the
// next explicit save succeeds.
package store
