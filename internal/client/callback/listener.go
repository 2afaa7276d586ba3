package callback

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/iudanet/accswitch/internal/autherr"
)

// Пути listener. Длинный путь редиректа зарегистрирован у провайдера,
// его длина не дает коду попасть в видимую часть адресной строки при демонстрации экрана.
const (
	PrimaryPath = "/in_game_account_switcher_long_enough_uri_to_prevent_accidental_leaks_on_screensharing_even_if_you_have_like_extremely_big_screen_though_it_might_not_mork_but_we_will_try_it_anyway_to_prevent_funny_things_from_happening_or_something"
	SafePath    = "/end"
)

// Значения по умолчанию
const (
	DefaultHost     = "127.0.0.1"
	DefaultPortFrom = 59125
	DefaultPortTo   = 59135
	DefaultGrace    = 10 * time.Second
	DefaultWait     = 10 * time.Minute
	DefaultMessage  = "You can close this tab and return to the application."
)

var (
	queryPattern   = regexp.MustCompile(`^code=([^&]*)&state=([^&]*)$`)
	codeObfuscator = regexp.MustCompile(`(?i)code=[^&]*`)
)

// Config настройки listener
type Config struct {
	Host     string        // адрес привязки, по умолчанию 127.0.0.1
	Message  string        // сообщение на странице после входа
	PortFrom int           // первый порт диапазона; отрицательный - любой свободный порт
	PortTo   int           // последний порт диапазона (включительно)
	Grace    time.Duration // задержка закрытия после ответа браузеру
	Wait     time.Duration // сколько ждать редиректа, потом listener закрывается
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.PortFrom == 0 && c.PortTo == 0 {
		c.PortFrom, c.PortTo = DefaultPortFrom, DefaultPortTo
	}
	if c.PortFrom < 0 {
		// отрицательное значение - любой свободный порт
		c.PortFrom, c.PortTo = 0, 0
	}
	if c.PortTo < c.PortFrom {
		c.PortTo = c.PortFrom
	}
	if c.Grace <= 0 {
		c.Grace = DefaultGrace
	}
	if c.Wait <= 0 {
		c.Wait = DefaultWait
	}
	if c.Message == "" {
		c.Message = DefaultMessage
	}
	return c
}

// ResultFunc получает код авторизации или ошибку. Вызывается не более одного раза.
type ResultFunc func(code string, err error)

// Listener одноразовый локальный HTTP сервер для приема редиректа из браузера
type Listener struct {
	onResult ResultFunc
	server   *http.Server
	logger   *slog.Logger
	done     chan struct{}
	waitT    *time.Timer
	state    string
	cfg      Config
	port     int

	accepted  atomic.Bool
	closeOnce sync.Once
	result    sync.Once
}

// Listen привязывается к первому свободному порту из диапазона и начинает принимать запросы.
// ctx ограничивает время жизни listener: при отмене он закрывается без вызова onResult.
func Listen(ctx context.Context, cfg Config, state string, onResult ResultFunc, logger *slog.Logger) (*Listener, error) {
	if state == "" {
		return nil, fmt.Errorf("%w: empty state", autherr.ErrInvalidInput)
	}
	if onResult == nil {
		return nil, fmt.Errorf("%w: nil result callback", autherr.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	ln, port, err := bind(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	l := &Listener{
		port:     port,
		state:    state,
		cfg:      cfg,
		onResult: onResult,
		logger:   logger.With("component", "callback", "port", port),
		done:     make(chan struct{}),
	}

	router := mux.NewRouter()
	router.HandleFunc(PrimaryPath, l.handlePrimary).Methods(http.MethodGet)
	router.HandleFunc(SafePath, l.handleSafe).Methods(http.MethodGet)

	// Цепочка middleware: recovery -> logging -> loopback -> router
	var handler http.Handler = router
	handler = loopbackOnly(l.logger)(handler)
	handler = loggingMiddleware(l.logger)(handler)
	handler = recoveryMiddleware(l.logger)(handler)

	l.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(l.logger.Handler(), slog.LevelDebug),
	}

	// redirect так и не пришел
	l.waitT = time.AfterFunc(cfg.Wait, func() {
		l.deliver("", autherr.New(autherr.ReasonExpired, "no browser redirect received in time"))
		_ = l.Close()
	})

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error("callback server stopped", "error", err)
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = l.Close()
		case <-l.done:
		}
	}()

	l.logger.Info("callback listener started")
	return l, nil
}

// bind перебирает порты по возрастанию
func bind(ctx context.Context, cfg Config, logger *slog.Logger) (net.Listener, int, error) {
	var lc net.ListenConfig
	var errs []error
	for port := cfg.PortFrom; port <= cfg.PortTo; port++ {
		ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(port)))
		if err != nil {
			logger.Debug("unable to bind callback port", "port", port, "error", err)
			errs = append(errs, err)
			continue
		}
		return ln, ln.Addr().(*net.TCPAddr).Port, nil
	}
	return nil, 0, fmt.Errorf("%w: ports %d-%d: %w", autherr.ErrNoPortAvailable, cfg.PortFrom, cfg.PortTo, errors.Join(errs...))
}

// Port возвращает привязанный порт
func (l *Listener) Port() int {
	return l.port
}

// RedirectURI адрес редиректа, который передается провайдеру
func (l *Listener) RedirectURI() string {
	return "http://localhost:" + strconv.Itoa(l.port) + PrimaryPath
}

// safeURI адрес безопасной страницы
func (l *Listener) safeURI() string {
	return "http://localhost:" + strconv.Itoa(l.port) + SafePath
}

// Done закрывается, когда listener остановлен
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Close останавливает listener. Повторный вызов ничего не делает.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.waitT != nil {
			l.waitT.Stop()
		}
		err = l.server.Close()
		close(l.done)
		l.logger.Info("callback listener closed")
	})
	return err
}

// handlePrimary принимает редирект из браузера, но только один раз
func (l *Listener) handlePrimary(w http.ResponseWriter, r *http.Request) {
	if !l.accepted.CompareAndSwap(false, true) {
		l.logger.Debug("closed repeated primary request")
		abort(w)
		return
	}
	l.waitT.Stop()

	// код не должен остаться в адресной строке, уводим браузер на безопасную страницу
	query := r.URL.RawQuery
	w.Header().Set("Location", l.safeURI())
	l.writePage(w, http.StatusFound)

	go func() {
		l.deliver(l.extract(query))
		time.AfterFunc(l.cfg.Grace, func() { _ = l.Close() })
	}()
}

// handleSafe отдает страницу завершения
func (l *Listener) handleSafe(w http.ResponseWriter, _ *http.Request) {
	l.writePage(w, http.StatusOK)
	if l.accepted.Load() {
		time.AfterFunc(l.cfg.Grace, func() { _ = l.Close() })
	}
}

func (l *Listener) writePage(w http.ResponseWriter, status int) {
	page := renderPage(IconDone, l.cfg.Message)
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(page)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.WriteHeader(status)
	_, _ = w.Write(page)
}

// extract достает код из query и сверяет state
func (l *Listener) extract(query string) (string, error) {
	if query == "" {
		return "", autherr.New(autherr.ReasonQuery, "callback opened without query")
	}
	if strings.Contains(strings.ToLower(query), "access_denied") {
		return "", autherr.New(autherr.ReasonCancel, "access denied: "+obfuscate(query))
	}

	m := queryPattern.FindStringSubmatch(query)
	if m == nil {
		return "", autherr.New(autherr.ReasonMalformed, "invalid callback query: "+obfuscate(query))
	}

	code, err := url.QueryUnescape(m[1])
	if err != nil {
		return "", autherr.New(autherr.ReasonMalformed, "invalid callback code encoding")
	}
	state, err := url.QueryUnescape(m[2])
	if err != nil {
		return "", autherr.New(autherr.ReasonMalformed, "invalid callback state encoding")
	}

	if subtle.ConstantTimeCompare([]byte(state), []byte(l.state)) != 1 {
		return "", autherr.ErrStateMismatch
	}
	if code == "" {
		return "", autherr.New(autherr.ReasonMalformed, "empty authorization code")
	}
	return code, nil
}

// deliver передает результат получателю не более одного раза
func (l *Listener) deliver(code string, err error) {
	l.result.Do(func() {
		if err != nil {
			l.logger.Warn("callback rejected", "reason", autherr.ReasonOf(err), "error", err)
		}
		l.onResult(code, err)
	})
}

func obfuscate(query string) string {
	return codeObfuscator.ReplaceAllString(query, "code=[CODE]")
}
