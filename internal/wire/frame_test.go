package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/puppetlink/internal/domain"
)

func sampleCommands() []domain.Command {
	return []domain.Command{
		domain.CreateScene{
			Instances: []domain.Instance{{InstanceID: 1, TypeName: "QtQuick.Item", MajorVersion: 2, MinorVersion: 15}},
			IDs:       []domain.IDContainer{{InstanceID: 1, ID: "root"}},
			Values:    []domain.PropertyValue{{InstanceID: 1, Name: "width", Value: "640"}},
			Imports:   []string{"import QtQuick 2.15"},
			FileURL:   "file:///tmp/Main.qml",
		},
		domain.ChangeValues{Values: []domain.PropertyValue{{InstanceID: 4, Name: "text", Value: "hello"}}},
		domain.Token{Name: "sync", Number: 7, InstanceIDs: []int32{1, 2}},
		domain.EndPuppet{},
		domain.PuppetAlive{},
		domain.ComponentCompleted{InstanceIDs: []int32{1}},
		domain.SyncBarrier{Name: "trace"},
	}
}

func TestEncodeLayout(t *testing.T) {
	buf, err := Encode(domain.EndPuppet{}, 42)
	require.NoError(t, err)

	remaining := binary.LittleEndian.Uint32(buf[:4])
	require.Equal(t, uint32(len(buf)-4), remaining)
	require.Equal(t, uint32(42), binary.LittleEndian.Uint32(buf[4:8]))

	cmd, err := Unmarshal(buf[8:])
	require.NoError(t, err)
	require.Equal(t, domain.EndPuppet{}, cmd)
}

func TestDecodeRoundTrip(t *testing.T) {
	for i, cmd := range sampleCommands() {
		t.Run(string(cmd.Kind()), func(t *testing.T) {
			buf, err := Encode(cmd, uint32(i))
			require.NoError(t, err)

			d := NewDecoder()
			d.lastCounter = uint32(i) - 1
			_, _ = d.Write(buf)
			frames, err := d.Decode()
			require.NoError(t, err)
			require.Len(t, frames, 1)
			require.Equal(t, uint32(i), frames[0].Counter)
			require.Equal(t, cmd, frames[0].Command)
			require.Zero(t, d.Buffered())
			require.Zero(t, d.PendingLength())
		})
	}
}

func TestDecodeFragmented(t *testing.T) {
	cmd := domain.ChangeValues{Values: []domain.PropertyValue{{InstanceID: 3, Name: "color", Value: "red"}}}
	buf, err := Encode(cmd, 0)
	require.NoError(t, err)

	for k := 1; k < len(buf); k++ {
		d := NewDecoder()
		_, _ = d.Write(buf[:k])
		frames, err := d.Decode()
		require.NoError(t, err)
		require.Empty(t, frames, "split at %d", k)
		if k >= 4 {
			require.Equal(t, uint32(len(buf)-4), d.PendingLength(), "prefix stays consumed at split %d", k)
		}

		_, _ = d.Write(buf[k:])
		frames, err = d.Decode()
		require.NoError(t, err)
		require.Len(t, frames, 1, "split at %d", k)
		require.Equal(t, cmd, frames[0].Command)
		require.False(t, frames[0].Gap)
	}
}

func TestDecodeMultipleFramesAndTrailingPartial(t *testing.T) {
	var stream bytes.Buffer
	enc := NewEncoder(&stream)
	require.NoError(t, enc.Send(domain.PuppetAlive{}))
	require.NoError(t, enc.Send(domain.ComponentCompleted{InstanceIDs: []int32{9}}))
	require.NoError(t, enc.Send(domain.Token{Name: "t", Number: 1}))

	all := stream.Bytes()
	d := NewDecoder()
	_, _ = d.Write(all[:len(all)-3])

	frames, err := d.Decode()
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.Equal(t, domain.PuppetAlive{}, frames[0].Command)
	require.Equal(t, domain.ComponentCompleted{InstanceIDs: []int32{9}}, frames[1].Command)

	_, _ = d.Write(all[len(all)-3:])
	frames, err = d.Decode()
	require.NoError(t, err)
	require.Len(t, frames, 1)
	require.Equal(t, uint32(2), frames[0].Counter)
}

func TestDecodeCounterGap(t *testing.T) {
	d := NewDecoder()
	for _, c := range []uint32{0, 1, 3} {
		buf, err := Encode(domain.Token{Name: "n", Number: int32(c)}, c)
		require.NoError(t, err)
		_, _ = d.Write(buf)
	}

	frames, err := d.Decode()
	require.NoError(t, err)
	require.Len(t, frames, 3)

	gaps := 0
	for _, f := range frames {
		if f.Gap {
			gaps++
			require.Equal(t, uint32(3), f.Counter)
			require.Equal(t, uint32(1), f.Missing)
		}
	}
	require.Equal(t, 1, gaps)
	require.Equal(t, uint64(1), d.Lost())
}

func TestDecodeRepeatedZeroCounter(t *testing.T) {
	d := NewDecoder()
	for i := 0; i < 2; i++ {
		buf, err := Encode(domain.PuppetAlive{}, 0)
		require.NoError(t, err)
		_, _ = d.Write(buf)
	}

	frames, err := d.Decode()
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.False(t, frames[0].Gap, "first frame may start at 0")
	require.True(t, frames[1].Gap, "second 0 is a repeat")
	require.Equal(t, uint32(0), frames[1].Missing)
	require.Equal(t, uint64(0), d.Lost())
}

func TestDecodeCounterWraparound(t *testing.T) {
	d := NewDecoder()
	d.lastCounter = ^uint32(0) - 1
	d.started = true
	for _, c := range []uint32{^uint32(0), 0, 1} {
		buf, err := Encode(domain.PuppetAlive{}, c)
		require.NoError(t, err)
		_, _ = d.Write(buf)
	}
	frames, err := d.Decode()
	require.NoError(t, err)
	require.Len(t, frames, 3)
	for _, f := range frames {
		require.False(t, f.Gap, "counter %d", f.Counter)
	}
}

func TestDecodeUnknownKindSkipsFrame(t *testing.T) {
	payload := []byte(`{"kind":"Bogus","body":{}}`)
	bad := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(bad, uint32(4+len(payload)))
	binary.LittleEndian.PutUint32(bad[4:], 0)
	copy(bad[8:], payload)

	good, err := Encode(domain.PuppetAlive{}, 1)
	require.NoError(t, err)

	d := NewDecoder()
	_, _ = d.Write(bad)
	_, _ = d.Write(good)

	frames, err := d.Decode()
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrUnknownCommand))
	require.Len(t, frames, 1)
	require.Equal(t, domain.PuppetAlive{}, frames[0].Command)
	require.False(t, frames[0].Gap)
}

func TestDecodeRejectsCorruptLength(t *testing.T) {
	d := NewDecoder()
	_, _ = d.Write([]byte{1, 0, 0, 0, 0, 0, 0, 0})

	_, err := d.Decode()
	require.ErrorIs(t, err, domain.ErrFrameTooLarge)
}
