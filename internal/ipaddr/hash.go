package ipaddr

import "hash/fnv"

// FragmentKey computes the reassembly key H(src‖dst‖protocol‖identification)
// that groups a datagram's fragments. Any collision-free hash works; FNV-1a
// is the stdlib's smallest well-distributed option and needs no seed
// management.
func FragmentKey(src, dst IPv4, protocol uint8, identification uint16) uint64 {
	h := fnv.New64a()
	h.Write(src[:])
	h.Write(dst[:])
	h.Write([]byte{protocol, byte(identification >> 8), byte(identification)})
	return h.Sum64()
}
