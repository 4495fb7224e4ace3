package wire

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/urllib3/urllib3-go/header"
)

// DefaultMaxHeaderListSize is the default aggregate cap on response header
// bytes.
const DefaultMaxHeaderListSize = 64 << 10

// StatusLine is the parsed "HTTP/1.x CODE REASON" line.
type StatusLine struct {
	Version string // e.g. "HTTP/1.1"
	Status  int
	Reason  string
}

// ReadStatusLine reads and parses the response status line.
func ReadStatusLine(br *bufio.Reader) (*StatusLine, error) {
	line, err := readCRLFLine(br)
	if err != nil {
		return nil, err
	}
	version, rest, ok := strings.Cut(line, " ")
	if !ok {
		return nil, &ProtocolError{Reason: "malformed status line " + strconv.Quote(line)}
	}
	if !strings.HasPrefix(version, "HTTP/1.") {
		return nil, &ProtocolError{Reason: "unsupported HTTP version " + version}
	}
	codeStr, reason, _ := strings.Cut(rest, " ")
	code, err := strconv.Atoi(codeStr)
	if err != nil || code < 100 || code > 599 {
		return nil, &ProtocolError{Reason: "invalid status code " + strconv.Quote(codeStr)}
	}
	return &StatusLine{Version: version, Status: code, Reason: reason}, nil
}

// ReadHeaders reads header lines until the terminating blank line,
// accepting obsolete line folding (leading whitespace continuation) as
// whitespace replacement, and enforcing maxBytes aggregate size. maxBytes
// <= 0 means DefaultMaxHeaderListSize.
func ReadHeaders(br *bufio.Reader, maxBytes int) (*header.Bag, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxHeaderListSize
	}
	bag := header.NewBag()
	total := 0
	var lastName string
	for {
		raw, err := br.ReadString('\n')
		if err != nil {
			return nil, &ProtocolError{Reason: "unexpected EOF reading headers", Cause: err}
		}
		total += len(raw)
		if total > maxBytes {
			return nil, &ProtocolError{Reason: "response header list exceeds maximum size"}
		}
		line := strings.TrimRight(raw, "\r\n")
		if line == "" {
			return bag, nil
		}
		if (line[0] == ' ' || line[0] == '\t') && lastName != "" {
			// Obsolete line folding: treat the continuation as whitespace
			// appended to the previous value.
			vs := bag.GetAll(lastName)
			if len(vs) > 0 {
				last := vs[len(vs)-1]
				bag.Pop(lastName)
				for _, v := range vs[:len(vs)-1] {
					bag.Add(lastName, v)
				}
				bag.Add(lastName, last+" "+strings.TrimSpace(line))
			}
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &ProtocolError{Reason: "malformed header line " + strconv.Quote(line)}
		}
		value = strings.TrimSpace(value)
		if strings.ContainsAny(value, "\r\n") {
			return nil, &ProtocolError{Reason: "CR or LF in header value"}
		}
		name = strings.TrimSpace(name)
		bag.Add(name, value)
		lastName = name
	}
}

func readCRLFLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", &ProtocolError{Reason: "unexpected EOF reading status line", Cause: err}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// BodyMode determines how the response body is length-delimited, by
// precedence order.
type BodyMode int

const (
	BodyEmpty BodyMode = iota
	BodyChunked
	BodyContentLength
	BodyCloseDelimited
)

// DetermineBodyMode applies the precedence order: HEAD/1xx/204/304 -> empty;
// Transfer-Encoding: chunked -> chunked; Content-Length -> that length;
// else -> close-delimited.
func DetermineBodyMode(method string, status int, h *header.Bag) (BodyMode, int64) {
	if method == "HEAD" || (status >= 100 && status < 200) || status == 204 || status == 304 {
		return BodyEmpty, 0
	}
	te := h.GetCombined("Transfer-Encoding")
	if te != "" && hasChunkedToken(te) {
		return BodyChunked, 0
	}
	if cl := h.Get("Content-Length"); cl != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err == nil && n >= 0 {
			return BodyContentLength, n
		}
	}
	return BodyCloseDelimited, 0
}

func hasChunkedToken(te string) bool {
	for _, tok := range strings.Split(te, ",") {
		if strings.EqualFold(strings.TrimSpace(tok), "chunked") {
			return true
		}
	}
	return false
}
