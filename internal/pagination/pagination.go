// Package pagination реализует постраничную выборку со смещением.
package pagination

import (
	"fmt"
	"math"

	"github.com/mmeshcher/invoice-service/internal/model"
)

const (
	// DefaultPage задаёт номер страницы, если он не передан.
	DefaultPage = 1
	// DefaultSize задаёт размер страницы, если он не передан.
	DefaultSize = 20
	// MaxSize задаёт максимальный размер страницы.
	MaxSize = 100
)

// PageRequest описывает запрошенное окно выборки. Page начинается с 1.
type PageRequest struct {
	Page int
	Size int
}

// NewPageRequest проверяет границы page >= 1 и 1 <= size <= MaxSize.
func NewPageRequest(page, size int) (PageRequest, error) {
	return newPageRequest(page, size, MaxSize)
}

func newPageRequest(page, size, maxSize int) (PageRequest, error) {
	if page < 1 {
		return PageRequest{}, fmt.Errorf("%w: page must be >= 1, got %d", model.ErrInvalidPageRequest, page)
	}
	if size < 1 || size > maxSize {
		return PageRequest{}, fmt.Errorf("%w: size must be between 1 and %d, got %d", model.ErrInvalidPageRequest, maxSize, size)
	}
	return PageRequest{Page: page, Size: size}, nil
}

// Offset возвращает количество пропускаемых записей. При переполнении int
// возвращается math.MaxInt: такая страница заведомо пуста.
func (r PageRequest) Offset() int {
	if r.Page <= 1 || r.Size <= 0 {
		return 0
	}
	if r.Page-1 > math.MaxInt/r.Size {
		return math.MaxInt
	}
	return (r.Page - 1) * r.Size
}

// Config задаёт значения по умолчанию и верхнюю границу размера страницы.
type Config struct {
	DefaultSize int
	MaxSize     int
}

// DefaultConfig возвращает размер по умолчанию 20 и максимум 100.
func DefaultConfig() Config {
	return Config{DefaultSize: DefaultSize, MaxSize: MaxSize}
}

// Policy нормализует параметры страницы из запроса.
type Policy struct {
	cfg Config
}

// NewPolicy создаёт политику постраничной выборки.
func NewPolicy(cfg Config) *Policy {
	return &Policy{cfg: cfg}
}

// Normalize подставляет значения по умолчанию вместо отсутствующих параметров и проверяет
// явно переданные. nil означает, что параметр не передан.
func (p *Policy) Normalize(page, size *int) (PageRequest, error) {
	pg := DefaultPage
	if page != nil {
		pg = *page
	}
	sz := p.cfg.DefaultSize
	if size != nil {
		sz = *size
	}
	return newPageRequest(pg, sz, p.cfg.MaxSize)
}

// Page хранит одну страницу результата вместе с общим количеством записей.
type Page[T any] struct {
	Content       []T
	TotalElements int64
	Request       PageRequest
}

// TotalPages возвращает ceil(TotalElements / Size).
func (p Page[T]) TotalPages() int {
	if p.TotalElements <= 0 || p.Request.Size <= 0 {
		return 0
	}
	size := int64(p.Request.Size)
	return int((p.TotalElements + size - 1) / size)
}

// HasNext сообщает, есть ли следующая страница.
func (p Page[T]) HasNext() bool {
	return p.Request.Page < p.TotalPages()
}

// HasPrevious сообщает, есть ли предыдущая страница. Для пустого результата всегда false.
func (p Page[T]) HasPrevious() bool {
	return p.TotalElements > 0 && p.Request.Page > 1
}

// IsFirst сообщает, что это первая страница.
func (p Page[T]) IsFirst() bool {
	return p.Request.Page == 1
}

// IsLast сообщает, что это последняя страница.
func (p Page[T]) IsLast() bool {
	return p.Request.Page == p.TotalPages()
}

// Info содержит метаданные страницы для ответа клиенту.
type Info struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

// Describe вычисляет метаданные страницы.
func Describe[T any](p Page[T]) Info {
	return Info{
		Page:        p.Request.Page,
		Limit:       p.Request.Size,
		Total:       p.TotalElements,
		TotalPages:  p.TotalPages(),
		HasNext:     p.HasNext(),
		HasPrevious: p.HasPrevious(),
	}
}
