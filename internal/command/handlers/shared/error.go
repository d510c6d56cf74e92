package shared

import (
	"fmt"
	"os"
)

// HandleError пишет ошибку в stdout в текстовом виде и возвращает её как error.
func HandleError(message, code string) error {
	_, _ = fmt.Fprintf(os.Stdout, "Ошибка: %s\nКод: %s\n", message, code)
	return fmt.Errorf("%s: %s", code, message)
}
