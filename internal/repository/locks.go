package repository

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
)

// AcquireTrainClassLock 取得 (車次, 艙等) 的 advisory lock，交易結束自動釋放。
// 候補序號的配發與遞補走這把鎖序列化，確保同一鍵上不會有兩個遞補並行、FIFO 不被打亂。
func AcquireTrainClassLock(ctx context.Context, tx pgx.Tx, trainNo int, coachClass string) error {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%s", trainNo, coachClass)
	key := int64(h.Sum64())

	_, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", key)
	return err
}
