package queue

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Key prefixes for the four indexes described in the data model: a task
// record, plus status_pri, watch, and utube secondary indexes.
const (
	prefixTask  = "t/"
	prefixSpPri = "sp_idx/"
	prefixWatch = "watch_idx/"
	prefixUtube = "ut_idx/"
)

// spacePrefix returns the base prefix for a space.
// Format: sp/{space}/
func spacePrefix(space string) string {
	return fmt.Sprintf("sp/%s/", space)
}

// primaryKey returns the key for a task record.
// Format: sp/{space}/t/{id:u64be}
func primaryKey(space string, id uint64) []byte {
	prefix := spacePrefix(space) + prefixTask
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], id)
	return key
}

// primaryPrefix returns the prefix under which all task records for a space
// live, for max-id scans.
func primaryPrefix(space string) []byte {
	return []byte(spacePrefix(space) + prefixTask)
}

// biasPriority maps a signed priority to an unsigned, order-preserving
// encoding so lexicographic byte comparison matches numeric comparison.
func biasPriority(pri int32) uint32 {
	return uint32(int64(pri) - math.MinInt32)
}

// statusPriKey returns the key for the status_pri index.
// Format: sp/{space}/sp_idx/{status}/{pri:u32be-biased}/{id:u64be}
func statusPriKey(space string, status Status, pri int32, id uint64) []byte {
	prefix := spacePrefix(space) + prefixSpPri
	key := make([]byte, len(prefix)+1+4+8)
	off := copy(key, prefix)
	key[off] = byte(status)
	off++
	binary.BigEndian.PutUint32(key[off:], biasPriority(pri))
	off += 4
	binary.BigEndian.PutUint64(key[off:], id)
	return key
}

// statusPriPrefix returns the prefix for scanning all tasks in a status,
// ordered by priority then id.
func statusPriPrefix(space string, status Status) []byte {
	prefix := spacePrefix(space) + prefixSpPri
	key := make([]byte, len(prefix)+1)
	off := copy(key, prefix)
	key[off] = byte(status)
	return key
}

// watchKey returns the key for the watch index.
// Format: sp/{space}/watch_idx/{status}/{next_event:u64be}/{id:u64be}
func watchKey(space string, status Status, nextEvent, id uint64) []byte {
	prefix := spacePrefix(space) + prefixWatch
	key := make([]byte, len(prefix)+1+8+8)
	off := copy(key, prefix)
	key[off] = byte(status)
	off++
	binary.BigEndian.PutUint64(key[off:], nextEvent)
	off += 8
	binary.BigEndian.PutUint64(key[off:], id)
	return key
}

// watchPrefix returns the prefix for scanning the earliest-deadline task in
// a status.
func watchPrefix(space string, status Status) []byte {
	prefix := spacePrefix(space) + prefixWatch
	key := make([]byte, len(prefix)+1)
	off := copy(key, prefix)
	key[off] = byte(status)
	return key
}

// utubeKey returns the key for the utube index.
// Format: sp/{space}/ut_idx/{status}/{utube}\x00{id:u64be}
func utubeKey(space string, status Status, utube string, id uint64) []byte {
	prefix := spacePrefix(space) + prefixUtube
	key := make([]byte, len(prefix)+1+len(utube)+1+8)
	off := copy(key, prefix)
	key[off] = byte(status)
	off++
	off += copy(key[off:], utube)
	key[off] = 0x00
	off++
	binary.BigEndian.PutUint64(key[off:], id)
	return key
}

// utubePrefix returns the prefix for scanning tasks in a given (status,
// utube) pair, ordered by id.
func utubePrefix(space string, status Status, utube string) []byte {
	prefix := spacePrefix(space) + prefixUtube
	key := make([]byte, len(prefix)+1+len(utube)+1)
	off := copy(key, prefix)
	key[off] = byte(status)
	off++
	off += copy(key[off:], utube)
	key[off] = 0x00
	return key
}

// keyRange returns [start, end) bounds for scanning everything with the
// given prefix.
func keyRange(prefix []byte) (lo, hi []byte) {
	return prefix, prefixSuccessor(prefix)
}

// prefixSuccessor returns the smallest key that sorts strictly after every
// key with the given prefix, by incrementing the last byte that is not
// already 0xFF and truncating there. A naive prefix+0xFF bound is wrong
// whenever the byte following the prefix can itself be 0xFF, which
// statusPriKey's biased priority encoding allows for priorities in the top
// part of int32's range. If prefix is empty or all 0xFF, there is no
// finite successor and nil (no upper bound) is returned.
func prefixSuccessor(prefix []byte) []byte {
	succ := append([]byte(nil), prefix...)
	for i := len(succ) - 1; i >= 0; i-- {
		if succ[i] < 0xFF {
			succ[i]++
			return succ[:i+1]
		}
	}
	return nil
}

// completedKey returns the key for a completion log entry.
// Format: sp/{space}/completed/{seq:u64be}
func completedKey(space string, seq uint64) []byte {
	prefix := spacePrefix(space) + "completed/"
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], seq)
	return key
}

// completedPrefix returns the prefix for scanning a space's completion log.
func completedPrefix(space string) []byte {
	return []byte(spacePrefix(space) + "completed/")
}

// idFromKey extracts the trailing 8-byte big-endian id from an index key.
func idFromKey(key []byte) uint64 {
	if len(key) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key[len(key)-8:])
}
