package store

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/domino14/retrograde/game"
)

var ErrBadExport = errors.New("not a tablebase export")

var exportMagic = [4]byte{'R', 'T', 'B', '1'}

// hash, value, depth, flags, best next
const exportRecordSize = 8 + 1 + 4 + 1 + 8

const (
	flagTerminal = 1 << iota
	flagHasBest
)

func encodeRecord(buf []byte, r Record) {
	binary.LittleEndian.PutUint64(buf[0:], r.Hash)
	buf[8] = byte(r.Value)
	binary.LittleEndian.PutUint32(buf[9:], uint32(r.DepthToTerminal))
	var flags byte
	if r.IsTerminal {
		flags |= flagTerminal
	}
	if r.HasBest {
		flags |= flagHasBest
	}
	buf[13] = flags
	binary.LittleEndian.PutUint64(buf[14:], r.BestNext)
}

func decodeRecord(buf []byte) (Record, error) {
	r := Record{
		Hash:            binary.LittleEndian.Uint64(buf[0:]),
		Value:           game.Value(int8(buf[8])),
		DepthToTerminal: int(binary.LittleEndian.Uint32(buf[9:])),
		IsTerminal:      buf[13]&flagTerminal != 0,
		HasBest:         buf[13]&flagHasBest != 0,
		BestNext:        binary.LittleEndian.Uint64(buf[14:]),
	}
	if !r.Value.Valid() {
		return Record{}, fmt.Errorf("%w: record %x has value %d", ErrBadExport, r.Hash, r.Value)
	}
	return r, nil
}

// Export writes every record of s to w as a zstd stream. It returns the
// number of records written.
func Export(ctx context.Context, s PositionStore, w io.Writer) (int, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return 0, fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := enc.Write(exportMagic[:]); err != nil {
		enc.Close()
		return 0, err
	}
	n := 0
	var buf [exportRecordSize]byte
	err = s.ForEach(ctx, func(r Record) error {
		encodeRecord(buf[:], r)
		if _, err := enc.Write(buf[:]); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		enc.Close()
		return n, fmt.Errorf("exporting: %w", err)
	}
	if err := enc.Close(); err != nil {
		return n, fmt.Errorf("exporting: %w", err)
	}
	log.Info().Int("records", n).Msg("tablebase-exported")
	return n, nil
}

// Import reads an export into s. Records already in s are kept, so imports
// from several runs compose. It returns how many records were added and how
// many were already present.
func Import(ctx context.Context, s PositionStore, r io.Reader) (added, skipped int, err error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return 0, 0, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()
	br := bufio.NewReader(dec)
	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil || magic != exportMagic {
		return 0, 0, ErrBadExport
	}
	var buf [exportRecordSize]byte
	for {
		if err := ctx.Err(); err != nil {
			return added, skipped, err
		}
		_, err := io.ReadFull(br, buf[:])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return added, skipped, fmt.Errorf("%w: %w", ErrBadExport, err)
		}
		rec, err := decodeRecord(buf[:])
		if err != nil {
			return added, skipped, err
		}
		ok, err := s.InsertIfAbsent(ctx, rec)
		if err != nil {
			return added, skipped, err
		}
		if ok {
			added++
		} else {
			skipped++
		}
	}
	if err := s.Flush(ctx); err != nil {
		return added, skipped, err
	}
	log.Info().Int("added", added).Int("skipped", skipped).Msg("tablebase-imported")
	return added, skipped, nil
}
