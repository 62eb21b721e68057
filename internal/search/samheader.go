package search

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var samTagRe = regexp.MustCompile(`\b(SN|AN):(\S+)\b`)

// samTextReferenceID scans a SAM-style text header's @SQ lines for the
// named or aliased reference, returning its position among @SQ lines.
// CRAM embeds exactly this header format ahead of its binary containers.
func samTextReferenceID(r io.Reader, reference string) (int, error) {
	var current int
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if !strings.HasPrefix(scanner.Text(), "@SQ") {
			continue
		}
		for _, tag := range samTagRe.FindAllStringSubmatch(scanner.Text(), -1) {
			switch tag[1] {
			case "SN":
				if tag[2] == reference {
					return current, nil
				}
			case "AN":
				for _, alias := range strings.Split(tag[2], ",") {
					if alias == reference {
						return current, nil
					}
				}
			}
		}
		current++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scanning header: %v", err)
	}
	return 0, fmt.Errorf("reference %q not found", reference)
}
