package zxid

// ZXID is a ZooKeeper transaction id. The high order 32 bits hold the epoch, which changes each time
// a new leader takes over, and the low order 32 bits hold a counter that the leader increments for
// every proposal. Every change to the tree is stamped with the zxid of the transaction that made it.
type ZXID int64

func NewZXID(epoch int32, counter int32) ZXID {
	highBits := int64(epoch) << 32
	lowBits := int64(uint32(counter))
	return ZXID(highBits | lowBits)
}

func (z ZXID) GetEpoch() int32 {
	return int32(z >> 32)
}

func (z ZXID) GetCounter() int32 {
	var maskLow32 ZXID = 0xFFFFFFFF
	return int32(z & maskLow32)
}

// Next returns the zxid of the following proposal in the same epoch.
func (z ZXID) Next() ZXID {
	return NewZXID(z.GetEpoch(), z.GetCounter()+1)
}

// NextEpoch returns the first zxid of the epoch after this one, (e+1, 0).
func (z ZXID) NextEpoch() ZXID {
	return NewZXID(z.GetEpoch()+1, 0)
}
