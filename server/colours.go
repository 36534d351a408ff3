package server

import (
	"fmt"
	"net/http"
)

// ANSI escapes for the DEV route log
const (
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiBlue    = "\033[34m"
	ansiMagenta = "\033[35m"
	ansiCyan    = "\033[36m"
	ansiGray    = "\033[90m"
	ansiReset   = "\033[0m"
)

var methodColours = map[string]string{
	http.MethodGet:     ansiGreen,
	http.MethodPost:    ansiBlue,
	http.MethodPut:     ansiCyan,
	http.MethodDelete:  ansiYellow,
	http.MethodOptions: ansiMagenta,
}

func colourMethod(method string) string {
	colour, ok := methodColours[method]
	if !ok {
		colour = ansiGray
	}
	return fmt.Sprintf("%s %-7s%s", colour, method, ansiReset)
}

func colourError(err error) string {
	return ansiRed + err.Error() + ansiReset
}
