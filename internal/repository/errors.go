package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/lib/pq"
)

// 存储层错误分类
// ErrNotFound：记录不存在，或存在但属于其他租户（对调用方不可区分）
// ErrStorageUnavailable：后端存储不可达（连接级故障），区别于逻辑错误
var (
	ErrNotFound           = errors.New("record not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// classifyError 将底层驱动错误归入存储层错误分类
// sql.ErrNoRows -> ErrNotFound；连接级故障 -> ErrStorageUnavailable；其余原样包装
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%s: %w", op, ErrStorageUnavailable)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s: %v: %w", op, err, ErrStorageUnavailable)
	}
	// PostgreSQL Class 08: Connection Exception
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && strings.HasPrefix(string(pqErr.Code), "08") {
		return fmt.Errorf("%s: %v: %w", op, err, ErrStorageUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
