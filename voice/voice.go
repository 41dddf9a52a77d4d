// Package voice demuxes per-player VoiceData service messages into raw
// Opus packet streams and mux-wraps each player's stream into a minimal
// Ogg container (SPEC_FULL §11). This is framing/muxing only: the Opus
// payloads are carried verbatim, never decoded, matching spec.md §1's
// explicit "Opus decoding (framing/muxing only)" carve-out.
package voice

import (
	"encoding/binary"
	"io"

	"github.com/csdemo/csdemo/errs"
)

// Packet is one VoiceData message's payload for one player.
type Packet struct {
	SteamID uint64
	Tick    int32
	Opus    []byte
}

// Demuxer groups incoming Packets by SteamID, preserving arrival order.
type Demuxer struct {
	streams map[uint64][]Packet
}

// NewDemuxer returns an empty demuxer.
func NewDemuxer() *Demuxer {
	return &Demuxer{streams: make(map[uint64][]Packet)}
}

// Push appends one decoded VoiceData packet to its SteamID's stream.
func (d *Demuxer) Push(p Packet) error {
	if len(p.Opus) == 0 {
		return errs.ErrMalformedVoicePacket
	}
	d.streams[p.SteamID] = append(d.streams[p.SteamID], p)
	return nil
}

// Streams returns every collected per-SteamID packet sequence.
func (d *Demuxer) Streams() map[uint64][]Packet { return d.streams }

// The page layout and checksum below follow RFC 3533 (the Ogg bitstream
// format): each packet becomes its own page with a single lacing-value
// segment table entry, so a packet must be shorter than 255 bytes; longer
// packets are rejected rather than split across pages.

// WriteOgg mux-wraps packets (a single SteamID's stream, in arrival order)
// into a minimal Ogg container as one logical bitstream, writing pages to
// w. Each packet is framed as its own Ogg page; the granule position is
// set to the packet's demo tick so a reader can recover timing without
// decoding the Opus payload.
func WriteOgg(w io.Writer, serial uint32, packets []Packet) error {
	for i, p := range packets {
		if len(p.Opus) >= 255 {
			return errs.ErrMalformedVoicePacket
		}
		headerType := byte(0)
		if i == 0 {
			headerType = 0x02 // beginning-of-stream
		}
		if i == len(packets)-1 {
			headerType |= 0x04 // end-of-stream
		}
		page := buildPage(headerType, uint64(p.Tick), serial, uint32(i), p.Opus)
		if _, err := w.Write(page); err != nil {
			return err
		}
	}
	return nil
}

func buildPage(headerType byte, granulePos uint64, serial, seq uint32, payload []byte) []byte {
	header := make([]byte, 27)
	copy(header[0:4], "OggS")
	header[4] = 0 // stream structure version
	header[5] = headerType
	binary.LittleEndian.PutUint64(header[6:14], granulePos)
	binary.LittleEndian.PutUint32(header[14:18], serial)
	binary.LittleEndian.PutUint32(header[18:22], seq)
	// header[22:26] CRC filled in below, header[26] = segment count (1)
	header[26] = 1

	page := append(header, byte(len(payload)))
	page = append(page, payload...)

	// Ogg CRC-32: polynomial 0x04c11db7, MSB-first, zero initial value and
	// no final XOR, computed with the CRC field itself still zero.
	var crc uint32
	for _, b := range page {
		crc ^= uint32(b) << 24
		for i := 0; i < 8; i++ {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ 0x04c11db7
			} else {
				crc <<= 1
			}
		}
	}
	binary.LittleEndian.PutUint32(page[22:26], crc)
	return page
}
