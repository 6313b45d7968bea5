package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
)

const schema = `
create table if not exists failover_journal (
	id               bigserial primary key,
	occurred_at      timestamptz not null,
	snapshot_version bigint      not null,
	eip              text        not null,
	kind             text        not null,
	instance         text        not null,
	detail           text        not null default '',
	constraint failover_journal_dedupe unique (snapshot_version, eip, kind)
);

create index if not exists failover_journal_eip_idx
	on failover_journal (eip, occurred_at desc);
`

func main() {
	host := os.Getenv("DATABASE_HOST")
	if host == "" {
		host = "127.0.0.1"
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, fmt.Sprintf(
		"user=postgres password=postgres host=%s port=5432 dbname=postgres sslmode=disable",
		host,
	))
	if err != nil {
		panic(err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, schema); err != nil {
		panic(err)
	}
	fmt.Println("journal schema is up to date")
}
