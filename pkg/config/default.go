// Global database config.
package config

// Name of the database.
const DBName = "dinodb"

// Prompt printed by REPL.
const Prompt = DBName + "> "

// PageSize is the number of bytes in a single heap page, header included.
// Matches directio.BlockSize so heap files can be read/written with O_DIRECT.
const PageSize = 4096

// StringFieldLength is the default fixed width, in bytes, of a string field
// (4 bytes of length prefix plus content and zero padding).
const StringFieldLength = 128

// DefaultBufferPoolPages is the number of pages the buffer pool caches by default.
const DefaultBufferPoolPages = 50

// Name of log file.
const LogFileName = "db.log"

// Return prompt if requested, else "".
func GetPrompt(flag bool) string {
	if flag {
		return Prompt
	}
	return ""
}
