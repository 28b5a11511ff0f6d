package half

// f16Table maps every possible F16 bit-pattern to float32.
var f16Table = func() [1 << 16]float32 {
	var tbl [1 << 16]float32
	for i := range tbl {
		tbl[i] = F16(i).F32()
	}
	return tbl
}()

// bf16Table maps every possible BF16 bit-pattern to float32.
var bf16Table = func() [1 << 16]float32 {
	var tbl [1 << 16]float32
	for i := range tbl {
		tbl[i] = BF16(i).F32()
	}
	return tbl
}()

// Lookup decodes h through the precomputed table. The table read beats the
// bit-twiddling path inside tight decode loops.
func Lookup(h F16) float32 {
	return f16Table[h]
}

// LookupBF16 decodes b through the precomputed table.
func LookupBF16(b BF16) float32 {
	return bf16Table[b]
}

// EncodeF16 rounds src into dst. dst must have at least len(src) elements.
func EncodeF16(dst []uint16, src []float32) {
	for i, v := range src {
		dst[i] = uint16(FromF32(v))
	}
}

// DecodeF16 widens src into dst. dst must have at least len(src) elements.
func DecodeF16(dst []float32, src []uint16) {
	for i, u := range src {
		dst[i] = f16Table[u]
	}
}

// EncodeBF16 rounds src into dst. dst must have at least len(src) elements.
func EncodeBF16(dst []uint16, src []float32) {
	for i, v := range src {
		dst[i] = uint16(BF16FromF32(v))
	}
}

// DecodeBF16 widens src into dst. dst must have at least len(src) elements.
func DecodeBF16(dst []float32, src []uint16) {
	for i, u := range src {
		dst[i] = bf16Table[u]
	}
}

// Quantize rounds every element of src through binary16 storage and widens
// it back into dst. It simulates what a binary16 store loses. dst and src
// may alias.
func Quantize(dst, src []float32) {
	for i, v := range src {
		dst[i] = f16Table[uint16(FromF32(v))]
	}
}
