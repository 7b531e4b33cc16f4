package ptybridge

import "bytes"

// lineSplitter turns a byte stream into payload lines. CR, LF and CRLF all end a line;
// blank lines are skipped and lines longer than limit are discarded whole.
type lineSplitter struct {
	limit    int
	buf      []byte
	overflow bool
}

func newLineSplitter(limit int) *lineSplitter {
	return &lineSplitter{limit: limit}
}

// feed appends p and returns the lines it completed, plus how many were discarded
func (s *lineSplitter) feed(p []byte) (lines []string, discarded int) {
	for len(p) > 0 {
		i := bytes.IndexAny(p, "\r\n")
		if i < 0 {
			s.append(p)
			return lines, discarded
		}

		s.append(p[:i])
		switch {
		case s.overflow:
			discarded++
		case len(s.buf) > 0:
			lines = append(lines, string(s.buf))
		}
		s.buf = s.buf[:0]
		s.overflow = false
		p = p[i+1:]
	}
	return lines, discarded
}

func (s *lineSplitter) append(p []byte) {
	if s.overflow {
		return
	}
	if len(s.buf)+len(p) > s.limit {
		s.overflow = true
		s.buf = s.buf[:0]
		return
	}
	s.buf = append(s.buf, p...)
}
