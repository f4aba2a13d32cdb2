package publish

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
)

// Entry is one publish attempt in the audit log.
type Entry struct {
	Seq     uint64 `json:"seq"`
	ID      string `json:"id"`
	Time    int64  `json:"time"`
	Slug    string `json:"slug"`
	Devices int    `json:"devices"`
	Status  string `json:"status"`
}

// Log is an append-only, snappy-compressed audit log of publish attempts.
// Frame format: [Seq:8][DataLen:4][Data:N][Checksum:4][Timestamp:8] with the
// JSON entry snappy-encoded into Data.
type Log struct {
	file    *os.File
	writer  *bufio.Writer
	lastSeq uint64
	mu      sync.Mutex
}

// OpenLog opens (or creates) the audit log in dataDir.
func OpenLog(dataDir string) (*Log, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("publog: create directory: %w", err)
	}

	path := filepath.Join(dataDir, "publish_audit.log")
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("publog: open: %w", err)
	}

	l := &Log{
		file:   file,
		writer: bufio.NewWriter(file),
	}

	// Replay existing frames to find the last sequence number.
	entries, err := readFrames(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("publog: recover: %w", err)
	}
	if len(entries) > 0 {
		l.lastSeq = entries[len(entries)-1].Seq
	}

	return l, nil
}

// Append records a publish attempt and flushes it to disk.
func (l *Log) Append(slug string, devices int, status string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastSeq++
	entry := Entry{
		Seq:     l.lastSeq,
		ID:      uuid.NewString(),
		Time:    time.Now().Unix(),
		Slug:    slug,
		Devices: devices,
		Status:  status,
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("publog: marshal: %w", err)
	}
	data := snappy.Encode(nil, raw)

	if err := binary.Write(l.writer, binary.BigEndian, entry.Seq); err != nil {
		return err
	}
	if err := binary.Write(l.writer, binary.BigEndian, uint32(len(data))); err != nil {
		return err
	}
	if _, err := l.writer.Write(data); err != nil {
		return err
	}
	if err := binary.Write(l.writer, binary.BigEndian, crc32.ChecksumIEEE(data)); err != nil {
		return err
	}
	if err := binary.Write(l.writer, binary.BigEndian, entry.Time); err != nil {
		return err
	}

	return l.writer.Flush()
}

// Entries returns every recorded attempt in append order.
func (l *Log) Entries() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writer.Flush(); err != nil {
		return nil, err
	}
	return readFrames(l.file)
}

// Close flushes and closes the log.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Flush(); err != nil {
		return err
	}
	return l.file.Close()
}

func readFrames(file *os.File) ([]Entry, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	defer file.Seek(0, io.SeekEnd)

	reader := bufio.NewReader(file)
	var entries []Entry
	for {
		var seq uint64
		if err := binary.Read(reader, binary.BigEndian, &seq); err != nil {
			if err == io.EOF {
				return entries, nil
			}
			return nil, err
		}
		var dataLen uint32
		if err := binary.Read(reader, binary.BigEndian, &dataLen); err != nil {
			return nil, err
		}
		data := make([]byte, dataLen)
		if _, err := io.ReadFull(reader, data); err != nil {
			return nil, err
		}
		var checksum uint32
		if err := binary.Read(reader, binary.BigEndian, &checksum); err != nil {
			return nil, err
		}
		var ts int64
		if err := binary.Read(reader, binary.BigEndian, &ts); err != nil {
			return nil, err
		}

		if crc32.ChecksumIEEE(data) != checksum {
			return nil, fmt.Errorf("publog: checksum mismatch at seq %d", seq)
		}
		raw, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("publog: decompress seq %d: %w", seq, err)
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("publog: parse seq %d: %w", seq, err)
		}
		entries = append(entries, entry)
	}
}
