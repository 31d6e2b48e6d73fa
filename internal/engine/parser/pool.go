package parser

import (
	"sync"
	"time"

	"ambiance/internal/shared/observability"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// DefaultMaxIdle bounds the idle free list when no capacity is given.
const DefaultMaxIdle = 8

// ParserPool recycles tree-sitter parser instances to avoid the per-file
// allocation overhead of sitter.NewParser() / parser.Close().
//
// Each pool is tied to a single tree-sitter language grammar. A leased
// parser belongs to exactly one parse session until it is released. Idle
// parsers are kept on a bounded free list; parsers that do not fit are
// closed on return, as is everything still idle when the pool is closed.
//
// Usage:
//
//	sess := pool.Acquire()
//	defer sess.Release()
//	tree := sess.Parser().Parse(source, nil)
//
// Concurrency: safe for use by multiple goroutines simultaneously.
type ParserPool struct {
	lang    *sitter.Language
	maxIdle int

	mu     sync.Mutex
	idle   []*sitter.Parser
	leases map[*sitter.Parser]time.Time
	closed bool
}

// NewParserPool creates a pool for the given language grammar holding at
// most maxIdle idle parsers. The language must remain valid for the
// lifetime of the pool.
func NewParserPool(lang *sitter.Language, maxIdle int) *ParserPool {
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	return &ParserPool{
		lang:    lang,
		maxIdle: maxIdle,
		idle:    make([]*sitter.Parser, 0, maxIdle),
		leases:  make(map[*sitter.Parser]time.Time),
	}
}

// Get takes a parser off the free list, or allocates a new one if the list
// is empty. The returned parser is already configured for the pool's
// language.
func (p *ParserPool) Get() *sitter.Parser {
	p.mu.Lock()
	var sp *sitter.Parser
	if n := len(p.idle); n > 0 {
		sp = p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
	}
	p.mu.Unlock()

	if sp == nil {
		sp = sitter.NewParser()
	}
	// Ensure the language is set in case the parser was Reset() externally.
	_ = sp.SetLanguage(p.lang)

	p.mu.Lock()
	p.leases[sp] = time.Now()
	p.mu.Unlock()
	observability.ActiveParsers.Inc()

	return sp
}

// Put returns a parser to the pool for reuse. The parser is reset before
// being stored so that no references to previous parse trees are retained.
// Parsers returned after Close, or while the free list is full, are freed
// instead of pooled. Callers must not use sp after calling Put.
func (p *ParserPool) Put(sp *sitter.Parser) {
	if sp == nil {
		return
	}

	p.mu.Lock()
	_, leased := p.leases[sp]
	delete(p.leases, sp)
	keep := !p.closed && len(p.idle) < p.maxIdle
	if keep {
		sp.Reset()
		p.idle = append(p.idle, sp)
	}
	p.mu.Unlock()
	if leased {
		observability.ActiveParsers.Dec()
	}

	if !keep {
		sp.Close()
	}
}

// Stats returns the number of currently active parsers.
func (p *ParserPool) Stats() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.leases)
}

// Idle returns the number of parsers waiting on the free list.
func (p *ParserPool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Close stops pooling and frees every idle parser. Parsers still leased are
// freed when they come back through Put. Close returns the number of idle
// parsers it freed and the number of leases outstanding at the time of the
// call. Subsequent calls free nothing.
func (p *ParserPool) Close() (freed, outstanding int) {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	outstanding = len(p.leases)
	p.mu.Unlock()

	for _, sp := range idle {
		sp.Close()
	}
	return len(idle), outstanding
}

// Session is one exclusive parser lease. Release is idempotent.
type Session struct {
	pool   *ParserPool
	parser *sitter.Parser
	once   sync.Once
}

// Acquire leases a parser for a single parse session.
func (p *ParserPool) Acquire() *Session {
	return &Session{pool: p, parser: p.Get()}
}

// Parser returns the leased parser. It must not be retained after Release.
func (s *Session) Parser() *sitter.Parser {
	return s.parser
}

// Release hands the parser back to its pool.
func (s *Session) Release() {
	s.once.Do(func() {
		s.pool.Put(s.parser)
		s.parser = nil
	})
}
