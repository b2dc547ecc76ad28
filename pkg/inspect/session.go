// Package inspect evaluates operator commands against a block index.
//
// A Session reads one line at a time and writes human readable output. It
// holds no terminal state, so the same evaluator backs the interactive
// prompt and scripted input.
package inspect

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/ssargent/blkidx/pkg/blockhash"
	"github.com/ssargent/blkidx/pkg/blockindex"
	"github.com/ssargent/blkidx/pkg/records"
	"github.com/ssargent/blkidx/pkg/schema"
	"github.com/ssargent/blkidx/pkg/storage"
)

// Errors
var (
	ErrQuit           = &InspectError{"quit"}
	ErrUnknownCommand = &InspectError{"unknown command"}
	ErrUsage          = &InspectError{"usage"}
)

// InspectError represents a command evaluation error
type InspectError struct {
	Message string
}

func (e *InspectError) Error() string {
	return e.Message
}

const defaultScanLimit = 20

const helpText = `Commands:
  HASH                  show the metadata summary of HASH
  meta HASH             show the metadata summary of HASH
  txids HASH            list the transaction ids of HASH
  header HASH           decode the block header of HASH
  block HASH            show every record stored for HASH
  raw KIND HASH         dump the stored value of a record as hex
  key KIND HASH         print the store key of a record
  scan KIND [LIMIT]     list records of KIND in key order
  order display|stored  choose how hashes are read and printed
  help                  show this message
  quit, q               leave the session

KIND is one of header, meta, txids (or the prefix letter B, M, X).
`

// Commands returns the command words a Session understands
func Commands() []string {
	return []string{"meta", "txids", "header", "block", "raw", "key", "scan", "order", "help", "quit"}
}

// Session evaluates commands against a reader
type Session struct {
	reader    *blockindex.Reader
	out       io.Writer
	log       *zap.Logger
	display   bool
	scanLimit int
}

// Option configures a Session
type Option func(*Session)

// WithDisplayOrder makes the session read and print hashes byte-reversed,
// the way block explorers and node RPCs show them
func WithDisplayOrder(display bool) Option {
	return func(s *Session) {
		s.display = display
	}
}

// WithScanLimit caps the number of records scan prints by default
func WithScanLimit(n int) Option {
	return func(s *Session) {
		s.scanLimit = n
	}
}

// WithLogger sets the session logger
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// NewSession creates a session that writes to out
func NewSession(reader *blockindex.Reader, out io.Writer, opts ...Option) *Session {
	s := &Session{
		reader:    reader,
		out:       out,
		log:       zap.NewNop(),
		scanLimit: defaultScanLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DisplayOrder reports whether hashes are shown byte-reversed
func (s *Session) DisplayOrder() bool {
	return s.display
}

// Eval runs one command line. It returns ErrQuit when the line asks to end
// the session.
func (s *Session) Eval(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]
	s.log.Debug("eval", zap.String("command", cmd), zap.Strings("args", args))

	switch cmd {
	case "quit", "q", "exit":
		return ErrQuit
	case "help", "?":
		_, err := io.WriteString(s.out, helpText)
		return err
	case "meta":
		return s.withHash(args, "meta HASH", s.meta)
	case "txids":
		return s.withHash(args, "txids HASH", s.txids)
	case "header":
		return s.withHash(args, "header HASH", s.header)
	case "block":
		return s.withHash(args, "block HASH", s.block)
	case "raw":
		return s.withKindHash(args, "raw KIND HASH", s.raw)
	case "key":
		return s.withKindHash(args, "key KIND HASH", s.key)
	case "scan":
		return s.scan(args)
	case "order":
		return s.order(args)
	}

	// A bare hash looks up its metadata summary.
	if len(parts) == 1 {
		if h, err := s.parseHash(parts[0]); err == nil {
			return s.meta(h)
		}
	}
	return fmt.Errorf("%w: %q (try help)", ErrUnknownCommand, parts[0])
}

// Run evaluates lines from next until it returns io.EOF or a quit command.
// Evaluation errors are printed and do not end the session.
func (s *Session) Run(next func() (string, error)) error {
	for {
		line, err := next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := s.Eval(line); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			fmt.Fprintf(s.out, "Error: %s\n", err)
		}
	}
}

func (s *Session) parseHash(arg string) (blockhash.Hash, error) {
	if s.display {
		return blockhash.ParseDisplayHex(arg)
	}
	return blockhash.ParseHex(arg)
}

func (s *Session) formatHash(h blockhash.Hash) string {
	if s.display {
		return h.DisplayString()
	}
	return h.String()
}

func (s *Session) withHash(args []string, usage string, fn func(blockhash.Hash) error) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: %s", ErrUsage, usage)
	}
	h, err := s.parseHash(args[0])
	if err != nil {
		return err
	}
	return fn(h)
}

func (s *Session) withKindHash(args []string, usage string, fn func(schema.RecordKind, blockhash.Hash) error) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: %s", ErrUsage, usage)
	}
	kind, err := schema.ParseKind(args[0])
	if err != nil {
		return err
	}
	h, err := s.parseHash(args[1])
	if err != nil {
		return err
	}
	return fn(kind, h)
}

func (s *Session) notFound(kind schema.RecordKind, h blockhash.Hash) error {
	_, err := fmt.Fprintf(s.out, "no %s record for %s\n", kind, s.formatHash(h))
	return err
}

func (s *Session) meta(h blockhash.Hash) error {
	m, found, err := s.reader.Meta(h)
	if err != nil {
		return err
	}
	if !found {
		return s.notFound(schema.MetaSummary, h)
	}
	return s.printMeta(m)
}

func (s *Session) printMeta(m records.BlockMeta) error {
	_, err := fmt.Fprintf(s.out, "tx_count=%d size=%d weight=%d\n", m.TxCount, m.Size, m.Weight)
	return err
}

func (s *Session) txids(h blockhash.Hash) error {
	l, found, err := s.reader.Txids(h)
	if err != nil {
		return err
	}
	if !found {
		return s.notFound(schema.TxidList, h)
	}
	return s.printTxids(l)
}

func (s *Session) printTxids(l records.TxidList) error {
	for i, txid := range l {
		if _, err := fmt.Fprintf(s.out, "%6d  %s\n", i, s.formatHash(txid)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(s.out, "(%d txids)\n", len(l))
	return err
}

func (s *Session) header(h blockhash.Hash) error {
	hdr, found, err := s.reader.Header(h)
	if err != nil {
		return err
	}
	if !found {
		return s.notFound(schema.Header, h)
	}
	return s.printHeader(hdr)
}

func (s *Session) printHeader(hdr records.BlockHeader) error {
	f, err := hdr.Fields()
	if err != nil {
		// Not a consensus header; show the bytes as stored.
		_, werr := fmt.Fprintf(s.out, "raw %s (%v)\n", hex.EncodeToString(hdr), err)
		return werr
	}

	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "version\t%d\n", f.Version)
	fmt.Fprintf(tw, "prev_block\t%s\n", s.formatHash(f.PrevBlock))
	fmt.Fprintf(tw, "merkle_root\t%s\n", s.formatHash(f.MerkleRoot))
	fmt.Fprintf(tw, "time\t%s\n", f.Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(tw, "bits\t%08x\n", f.Bits)
	fmt.Fprintf(tw, "nonce\t%d\n", f.Nonce)
	if bh, err := hdr.Hash(); err == nil {
		fmt.Fprintf(tw, "hash\t%s\n", s.formatHash(bh))
	}
	return tw.Flush()
}

func (s *Session) block(h blockhash.Hash) error {
	b, found, err := s.reader.Block(h)
	if err != nil {
		return err
	}
	if !found {
		_, err := fmt.Fprintf(s.out, "no records for %s\n", s.formatHash(h))
		return err
	}

	fmt.Fprintf(s.out, "block %s\n", s.formatHash(b.Hash))
	if b.Header != nil {
		fmt.Fprintln(s.out, "-- header")
		if err := s.printHeader(b.Header); err != nil {
			return err
		}
	}
	if b.Meta != nil {
		fmt.Fprintln(s.out, "-- meta")
		if err := s.printMeta(*b.Meta); err != nil {
			return err
		}
	}
	if b.Txids != nil {
		fmt.Fprintln(s.out, "-- txids")
		return s.printTxids(b.Txids)
	}
	return nil
}

func (s *Session) raw(kind schema.RecordKind, h blockhash.Hash) error {
	value, found, err := s.reader.Raw(kind, h)
	if err != nil {
		return err
	}
	if !found {
		return s.notFound(kind, h)
	}
	_, err = fmt.Fprintf(s.out, "%s (%d bytes)\n", hex.EncodeToString(value), len(value))
	return err
}

func (s *Session) key(kind schema.RecordKind, h blockhash.Hash) error {
	_, err := fmt.Fprintln(s.out, hex.EncodeToString(schema.BuildKey(kind, h)))
	return err
}

func (s *Session) scan(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: scan KIND [LIMIT]", ErrUsage)
	}
	kind, err := schema.ParseKind(args[0])
	if err != nil {
		return err
	}
	limit := s.scanLimit
	if len(args) == 2 {
		if limit, err = strconv.Atoi(args[1]); err != nil || limit <= 0 {
			return fmt.Errorf("%w: invalid limit %q", ErrUsage, args[1])
		}
	}

	var n int
	err = s.reader.Scan(kind, func(h blockhash.Hash, value []byte) error {
		fmt.Fprintf(s.out, "%s  %s\n", s.formatHash(h), summarize(kind, value))
		n++
		if n >= limit {
			return storage.ErrStopScan
		}
		return nil
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(s.out, "(%d records)\n", n)
	return err
}

// summarize renders a short description of a stored value
func summarize(kind schema.RecordKind, value []byte) string {
	switch kind {
	case schema.MetaSummary:
		m, err := records.DecodeMeta(blockindex.ValueOrder, value)
		if err != nil {
			return "malformed: " + err.Error()
		}
		return fmt.Sprintf("tx_count=%d size=%d weight=%d", m.TxCount, m.Size, m.Weight)
	case schema.TxidList:
		if len(value)%blockhash.Size != 0 {
			return fmt.Sprintf("malformed: %d bytes", len(value))
		}
		return fmt.Sprintf("%d txids", len(value)/blockhash.Size)
	default:
		return fmt.Sprintf("%d bytes", len(value))
	}
}

func (s *Session) order(args []string) error {
	if len(args) == 0 {
		_, err := fmt.Fprintf(s.out, "order %s\n", s.orderName())
		return err
	}
	switch strings.ToLower(args[0]) {
	case "display":
		s.display = true
	case "stored":
		s.display = false
	default:
		return fmt.Errorf("%w: order display|stored", ErrUsage)
	}
	_, err := fmt.Fprintf(s.out, "order %s\n", s.orderName())
	return err
}

func (s *Session) orderName() string {
	if s.display {
		return "display"
	}
	return "stored"
}
