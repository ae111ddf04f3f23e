package format

import "strconv"

var units = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// Size 以 1024 为进制格式化字节数，如 "1.50 MB"
func Size(n int64) string {
	if n < 1024 {
		return strconv.FormatInt(n, 10) + " B"
	}

	value := float64(n)
	exp := 0
	for value >= 1024 && exp < len(units)-1 {
		value /= 1024
		exp++
	}
	return strconv.FormatFloat(value, 'f', 2, 64) + " " + units[exp]
}
