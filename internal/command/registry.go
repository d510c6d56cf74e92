package command

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// Ошибки регистрации.
var (
	ErrNilHandler       = errors.New("command: nil handler")
	ErrInvalidName      = errors.New("command: invalid handler name")
	ErrDuplicateHandler = errors.New("command: duplicate handler registration")
)

var (
	registry = make(map[string]Handler)
	mu       sync.RWMutex
	// kebab-case без завершающего и двойного дефиса
	commandNamePattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)
)

// Register добавляет обработчик в реестр под h.Name().
//
//	func RegisterCmd() error {
//	    return command.Register(&VerifyHandler{})
//	}
func Register(h Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	name := h.Name()
	if !commandNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q (ожидается kebab-case)", ErrInvalidName, name)
	}

	mu.Lock()
	defer mu.Unlock()
	return put(name, h)
}

// RegisterWithAlias регистрирует обработчик и, если deprecated не пуст,
// DeprecatedBridge под устаревшим именем.
func RegisterWithAlias(h Handler, deprecated string) error {
	if err := Register(h); err != nil {
		return err
	}
	if deprecated == "" {
		return nil
	}
	if deprecated == h.Name() {
		return fmt.Errorf("%w: устаревшее имя совпадает с основным %q", ErrInvalidName, deprecated)
	}

	mu.Lock()
	defer mu.Unlock()
	return put(deprecated, &DeprecatedBridge{actual: h, deprecated: deprecated, newName: h.Name()})
}

// put вызывается под mu.
func put(name string, h Handler) error {
	if _, exists := registry[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, name)
	}
	registry[name] = h
	return nil
}

// Get возвращает обработчик по имени.
func Get(name string) (Handler, bool) {
	mu.RLock()
	defer mu.RUnlock()
	h, ok := registry[name]
	return h, ok
}

// All возвращает копию реестра.
func All() map[string]Handler {
	mu.RLock()
	defer mu.RUnlock()
	result := make(map[string]Handler, len(registry))
	for k, v := range registry {
		result[k] = v
	}
	return result
}

// Names возвращает отсортированные имена, включая устаревшие.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info: команда и её устаревший алиас (пусто, если алиаса нет).
type Info struct {
	Name            string
	DeprecatedAlias string
}

// ListAllWithAliases возвращает основные команды, отсортированные по имени.
// Мосты отдельными записями не попадают: их имена идут в DeprecatedAlias.
func ListAllWithAliases() []Info {
	mu.RLock()
	defer mu.RUnlock()

	aliases := make(map[string]string)
	for _, h := range registry {
		if bridge, ok := h.(*DeprecatedBridge); ok {
			aliases[bridge.newName] = bridge.deprecated
		}
	}

	result := make([]Info, 0, len(registry)-len(aliases))
	for name, h := range registry {
		if _, isBridge := h.(*DeprecatedBridge); isBridge {
			continue
		}
		result = append(result, Info{Name: name, DeprecatedAlias: aliases[name]})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// clearRegistry используется в тестах.
func clearRegistry() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[string]Handler)
}
