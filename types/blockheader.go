package types

// GenesisBlockNum is the number of the genesis block.
const GenesisBlockNum uint32 = 0

// BlockHeader is the client's view of a sequenced block. Headers are trusted
// once the remote node has produced them; the client's job is only to chain
// them into its local accumulator so inclusion can be proven later.
type BlockHeader struct {
	BlockNum      uint32
	Version       uint32
	PrevHash      Word
	ChainRoot     Word
	AccountRoot   Word
	NoteRoot      Word
	NullifierRoot Word
	Timestamp     uint64
}

// IsGenesis reports whether the header is block 0.
func (h BlockHeader) IsGenesis() bool { return h.BlockNum == GenesisBlockNum }

// SubHash commits to every header field except the note root. Together with
// the note root it reproduces the block hash, which is what note inclusion
// proofs anchor to.
func (h BlockHeader) SubHash(hasher Hasher) Word {
	elements := []Felt{
		Felt(h.BlockNum),
		Felt(h.Version),
		Felt(h.Timestamp),
	}
	elements = append(elements, h.PrevHash.Elements()...)
	elements = append(elements, h.ChainRoot.Elements()...)
	elements = append(elements, h.AccountRoot.Elements()...)
	elements = append(elements, h.NullifierRoot.Elements()...)
	return hasher.HashElements(elements)
}

// Hash returns the block hash: the sub hash merged with the note root.
func (h BlockHeader) Hash(hasher Hasher) Word {
	return hasher.MergeWords(h.SubHash(hasher), h.NoteRoot)
}
