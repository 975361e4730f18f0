package utils

const hexd = "0123456789ABCDEF"

// Hex2 formats a byte as a 2-character hexadecimal string (e.g., "4A").
// Keeps per-frame log attributes cheap without pulling in fmt.
func Hex2(v byte) string {
	return string([]byte{hexd[v>>4], hexd[v&0x0F]})
}

// BytesToHex converts a byte slice to a hexadecimal string
func BytesToHex(b []byte) string {
	out := make([]byte, 0, len(b)*2)
	for _, x := range b {
		out = append(out, hexd[x>>4], hexd[x&0x0F])
	}
	return string(out)
}
