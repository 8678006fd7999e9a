package smt

import (
	"fmt"
	"math/big"
)

var zero = big.NewInt(0)
var one = big.NewInt(1)

// BVConst is an arbitrary-precision, fixed-width bit-vector constant.
// It underlies literal terms and is also what a Model hands back for a
// free symbol.
type BVConst struct {
	Size  uint
	mask  *big.Int
	value *big.Int
}

func makeMask(size uint) *big.Int {
	bytes := make([]byte, size/8)
	for i := uint(0); i < size/8; i++ {
		bytes[i] = 0xff
	}
	v := big.NewInt(0)
	v.SetBytes(bytes)
	for i := size / 8 * 8; i < size/8*8+size%8; i++ {
		v.SetBit(v, int(i), 1)
	}
	return v
}

func MakeBVConst(value int64, size uint) *BVConst {
	if size == 0 {
		return nil
	}
	mask := makeMask(size)
	v := big.NewInt(value)
	if v.Cmp(zero) < 0 {
		v = v.Neg(v)
		v = v.Sub(v, one)
		v = v.Sub(mask, v)
		v = v.And(v, mask)
	}
	return &BVConst{Size: size, mask: mask, value: v}
}

func MakeBVConstFromBigint(value *big.Int, size uint) *BVConst {
	if size == 0 {
		return nil
	}
	mask := makeMask(size)
	v := new(big.Int).Set(value)
	if v.Cmp(zero) < 0 {
		v = v.Neg(v)
		v = v.Sub(v, one)
		v = v.Sub(mask, v)
		v = v.And(v, mask)
	}
	return &BVConst{Size: size, mask: mask, value: v}
}

// MakeBVConstFromString parses a base-`base` unsigned magnitude into a
// `size`-bit constant, returning nil on a malformed string.
func MakeBVConstFromString(s string, base int, size uint) *BVConst {
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil
	}
	return MakeBVConstFromBigint(v, size)
}

// IntMin returns the most negative `size`-bit signed value.
func IntMin(size uint) *BVConst {
	c := MakeBVConst(0, size)
	c.value.SetBit(c.value, int(size-1), 1)
	return c
}

func (bv *BVConst) IsNegative() bool    { return bv.value.Bit(int(bv.Size)-1) == 1 }
func (bv *BVConst) IsZero() bool        { return bv.value.Cmp(zero) == 0 }
func (bv *BVConst) IsOne() bool         { return bv.value.Cmp(one) == 0 }
func (bv *BVConst) HasAllBitsSet() bool { return bv.value.Cmp(makeMask(bv.Size)) == 0 }

func (bv *BVConst) Copy() *BVConst {
	return &BVConst{Size: bv.Size, mask: new(big.Int).Set(bv.mask), value: new(big.Int).Set(bv.value)}
}

func (bv *BVConst) String() string { return fmt.Sprintf("<i%d 0x%x>", bv.Size, bv.value) }

func (bv *BVConst) FitInLong() bool {
	maxulong := new(big.Int).Lsh(big.NewInt(2), 64)
	maxulong.Sub(maxulong, one)
	return bv.value.Cmp(maxulong) <= 0
}

func (bv *BVConst) AsULong() uint64 { return bv.value.Uint64() }

func (bv *BVConst) AsLong() int64 {
	if !bv.IsNegative() {
		return bv.value.Int64()
	}
	cpy := bv.Copy()
	cpy.Not()
	cpy.Add(MakeBVConst(1, bv.Size))
	return -int64(cpy.AsULong())
}

func checkSize(a, b uint) error {
	if a != b {
		return fmt.Errorf("different sizes %d and %d", a, b)
	}
	return nil
}

func (bv *BVConst) Not() {
	bv.value.Not(bv.value)
	bv.value.And(bv.value, bv.mask)
}

func (bv *BVConst) Neg() {
	bv.value.Sub(bv.value, one)
	bv.value.Sub(bv.mask, bv.value)
	bv.value.And(bv.value, bv.mask)
}

func (bv *BVConst) Add(o *BVConst) error {
	if err := checkSize(bv.Size, o.Size); err != nil {
		return err
	}
	bv.value.Add(bv.value, o.value)
	bv.value.And(bv.value, bv.mask)
	return nil
}

func (bv *BVConst) Sub(o *BVConst) error {
	if err := checkSize(bv.Size, o.Size); err != nil {
		return err
	}
	bv.value.Sub(bv.value, o.value)
	bv.value.And(bv.value, bv.mask)
	return nil
}

func (bv *BVConst) Mul(o *BVConst) error {
	if err := checkSize(bv.Size, o.Size); err != nil {
		return err
	}
	bv.value.Mul(bv.value, o.value)
	bv.value.And(bv.value, bv.mask)
	return nil
}

func (bv *BVConst) UDiv(o *BVConst) error {
	if err := checkSize(bv.Size, o.Size); err != nil {
		return err
	}
	bv.value.Div(bv.value, o.value)
	bv.value.And(bv.value, bv.mask)
	return nil
}

func signMag(bv *BVConst) (*big.Int, bool) {
	if bv.IsNegative() {
		c := bv.Copy()
		c.Neg()
		return new(big.Int).Neg(c.value), true
	}
	return new(big.Int).Set(bv.value), false
}

func (bv *BVConst) SDiv(o *BVConst) error {
	if err := checkSize(bv.Size, o.Size); err != nil {
		return err
	}
	c1, _ := signMag(bv)
	c2, _ := signMag(o)
	res := c1.Quo(c1, c2)
	if res.Cmp(zero) < 0 {
		res.Neg(res)
		res.Sub(res, one)
		res.Sub(bv.mask, res)
		res.And(res, bv.mask)
	}
	bv.value = res
	return nil
}

func (bv *BVConst) URem(o *BVConst) error {
	if err := checkSize(bv.Size, o.Size); err != nil {
		return err
	}
	bv.value.Rem(bv.value, o.value)
	bv.value.And(bv.value, bv.mask)
	return nil
}

func (bv *BVConst) SRem(o *BVConst) error {
	if err := checkSize(bv.Size, o.Size); err != nil {
		return err
	}
	c1, _ := signMag(bv)
	c2, _ := signMag(o)
	res := c1.Rem(c1, c2)
	if res.Cmp(zero) < 0 {
		res.Neg(res)
		res.Sub(res, one)
		res.Sub(bv.mask, res)
		res.And(res, bv.mask)
	}
	bv.value = res
	return nil
}

func (bv *BVConst) And(o *BVConst) error {
	if err := checkSize(bv.Size, o.Size); err != nil {
		return err
	}
	bv.value.And(bv.value, o.value)
	return nil
}

func (bv *BVConst) Or(o *BVConst) error {
	if err := checkSize(bv.Size, o.Size); err != nil {
		return err
	}
	bv.value.Or(bv.value, o.value)
	return nil
}

func (bv *BVConst) Xor(o *BVConst) error {
	if err := checkSize(bv.Size, o.Size); err != nil {
		return err
	}
	bv.value.Xor(bv.value, o.value)
	return nil
}

func (bv *BVConst) AShr(n uint) {
	if n >= bv.Size {
		if bv.IsNegative() {
			bv.value = new(big.Int).Set(bv.mask)
		} else {
			bv.value = big.NewInt(0)
		}
		return
	}
	if n == 0 {
		return
	}
	neg := bv.IsNegative()
	bv.value.Rsh(bv.value, n)
	if neg {
		mask := makeMask(n)
		mask.Lsh(mask, bv.Size-n)
		bv.value.Or(bv.value, mask)
	}
}

func (bv *BVConst) LShr(n uint) {
	if n >= bv.Size {
		bv.value = big.NewInt(0)
		return
	}
	if n == 0 {
		return
	}
	bv.value.Rsh(bv.value, n)
}

func (bv *BVConst) Shl(n uint) {
	if n >= bv.Size {
		bv.value = big.NewInt(0)
		return
	}
	if n == 0 {
		return
	}
	bv.value.Lsh(bv.value, n)
	bv.value.And(bv.value, bv.mask)
}

func (bv *BVConst) Concat(o *BVConst) {
	oCpy := o.Copy()
	oCpy.ZExt(bv.Size)

	bv.ZExt(o.Size)
	bv.Shl(o.Size)
	bv.Or(oCpy)
}

func (bv *BVConst) Truncate(high, low uint) error {
	if high < low {
		return fmt.Errorf("high is lower than low")
	}
	if high > bv.Size {
		return fmt.Errorf("high is greater than Size")
	}
	bv.LShr(low)
	bv.Size = high - low + 1
	bv.mask = makeMask(bv.Size)
	bv.value.And(bv.value, bv.mask)
	return nil
}

func (bv *BVConst) Slice(high, low uint) *BVConst {
	if high < low || high > bv.Size {
		return nil
	}
	res := MakeBVConst(0, high-low+1)
	res.value.Or(res.value, bv.value)
	res.value.Rsh(res.value, low)
	res.value.And(res.value, res.mask)
	return res
}

func (bv *BVConst) ZExt(bits uint) {
	bv.Size += bits
	bv.mask = makeMask(bv.Size)
}

func (bv *BVConst) SExt(bits uint) {
	if !bv.IsNegative() {
		bv.ZExt(bits)
		return
	}
	newBits := makeMask(bits)
	newBits.Lsh(newBits, bv.Size)
	bv.value.Or(bv.value, newBits)
	bv.Size += bits
	bv.mask = makeMask(bv.Size)
}

func (bv *BVConst) Eq(o *BVConst) (bool, error) {
	if err := checkSize(bv.Size, o.Size); err != nil {
		return false, err
	}
	return bv.value.Cmp(o.value) == 0, nil
}

func (bv *BVConst) UGt(o *BVConst) (bool, error) {
	if err := checkSize(bv.Size, o.Size); err != nil {
		return false, err
	}
	return bv.value.Cmp(o.value) > 0, nil
}

func (bv *BVConst) UGe(o *BVConst) (bool, error) {
	eq, err := bv.Eq(o)
	if err != nil || eq {
		return true, err
	}
	return bv.UGt(o)
}

func (bv *BVConst) ULt(o *BVConst) (bool, error) {
	v, err := bv.UGe(o)
	return !v, err
}

func (bv *BVConst) ULe(o *BVConst) (bool, error) {
	v, err := bv.UGt(o)
	return !v, err
}

func (bv *BVConst) SGt(o *BVConst) (bool, error) {
	if err := checkSize(bv.Size, o.Size); err != nil {
		return false, err
	}
	an, bn := bv.IsNegative(), o.IsNegative()
	switch {
	case an && !bn:
		return false, nil
	case !an && bn:
		return true, nil
	default:
		m1, _ := signMag(bv)
		m2, _ := signMag(o)
		if an {
			return m1.CmpAbs(m2) < 0, nil
		}
		return m1.CmpAbs(m2) > 0, nil
	}
}

func (bv *BVConst) SGe(o *BVConst) (bool, error) {
	eq, err := bv.Eq(o)
	if err != nil || eq {
		return true, err
	}
	return bv.SGt(o)
}

func (bv *BVConst) SLt(o *BVConst) (bool, error) {
	v, err := bv.SGe(o)
	return !v, err
}

func (bv *BVConst) SLe(o *BVConst) (bool, error) {
	v, err := bv.SGt(o)
	return !v, err
}
