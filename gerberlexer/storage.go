/*
 Supplier and acceptor of source blocks
*/

package gerberlexer

type Supplier interface {
	Next() (Block, bool)
	Len() int
}

type Consumer interface {
	Accept(Block)
}

type Storage struct {
	index  int
	blocks []Block
}

func NewStorage() *Storage {
	retVal := new(Storage)
	retVal.blocks = make([]Block, 0)
	return retVal
}

// Next returns the next block, false when no more blocks left
func (storage *Storage) Next() (Block, bool) {
	if storage.index >= len(storage.blocks) {
		return Block{}, false
	}
	index := storage.index
	storage.index++
	return storage.blocks[index], true
}

// empty blocks are discarded
func (storage *Storage) Accept(b Block) {
	if len(b.Text) > 0 {
		storage.blocks = append(storage.blocks, b)
	}
}

func (storage *Storage) Len() int {
	return len(storage.blocks)
}

func (storage *Storage) ResetPos() {
	storage.index = 0
}

func (storage *Storage) Empty() {
	storage.index = 0
	storage.blocks = storage.blocks[:0]
}

func (storage *Storage) PeekPos() int {
	return storage.index
}

func (storage *Storage) ToArray() []Block {
	retVal := make([]Block, len(storage.blocks))
	copy(retVal, storage.blocks)
	return retVal
}
