package version

import "fmt"

// Заполняются при сборке через -ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Version возвращает версию сборки.
func Version() string { return version }

// Info возвращает версию, commit и дату сборки.
func Info() (v, c, d string) { return version, commit, buildDate }

// String возвращает версию в одну строку для логов и health-ответов.
func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, buildDate)
}
