package badger

import (
	"encoding/binary"

	"github.com/poiesic/safetyrag/core"
)

// Key prefixes for different data types
const (
	documentRecordPrefix = "docrec"
	documentOrderPrefix  = "docord"
	documentSeq          = "docrecseq"
	vectorRecordPrefix   = "vecrec"
	standardsRecordKey   = "stdrec:industry"
)

// makeDocumentKey generates a key for a document.
// Format: prefix:kind:id
func makeDocumentKey(ref core.Ref) []byte {
	return []byte(documentRecordPrefix + ":" + string(ref.Kind) + ":" + ref.ID)
}

// makePartialOrderKey generates the prefix shared by a kind's order entries.
// Format: prefix:kind:
func makePartialOrderKey(kind core.Kind) []byte {
	return []byte(documentOrderPrefix + ":" + string(kind) + ":")
}

// makeOrderKey generates a key for the insertion order index.
// Format: prefix:kind:seq
func makeOrderKey(kind core.Kind, seq uint64) []byte {
	prefixBytes := makePartialOrderKey(kind)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makePartialVectorKey generates the prefix shared by a model's vectors.
// Format: prefix:model:
func makePartialVectorKey(model string) []byte {
	return []byte(vectorRecordPrefix + ":" + model + ":")
}

// makeVectorKey generates a key for a cached vector.
// Format: prefix:model:contentID
func makeVectorKey(model string, id core.ID) []byte {
	prefixBytes := makePartialVectorKey(model)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
