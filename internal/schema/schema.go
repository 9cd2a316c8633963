// Package schema declares the application's tables as ordered migrations.
//
// Order is load-bearing: every table appears after the tables its foreign
// keys reference.
package schema

import (
	"github.com/yanizio/billing-api/internal/database"
	"github.com/yanizio/billing-api/internal/migrate"
)

// Entity names in migration order.
const (
	User          = "User"
	UserToken     = "UserToken"
	Customer      = "Customer"
	Billing       = "Billing"
	Product       = "Product"
	MailConfig    = "MailConfig"
	Invoice       = "Invoice"
	InvoiceDetail = "InvoiceDetail"
)

const tableOpts = ` ENGINE=InnoDB DEFAULT CHARSET=utf8 COLLATE=utf8_general_ci`

var entities = []struct {
	name  string
	table string
	ddl   string
}{
	{User, "users", `
        CREATE TABLE users (
            id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
            name          VARCHAR(255)    NOT NULL,
            email         VARCHAR(255)    NOT NULL UNIQUE,
            password_hash VARCHAR(255)    NOT NULL,
            created_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
        )`},
	{UserToken, "user_tokens", `
        CREATE TABLE user_tokens (
            id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
            token      VARCHAR(128)    NOT NULL UNIQUE,
            user_id    BIGINT UNSIGNED NOT NULL,
            expires_at DATETIME        NULL,
            created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT fk_user_tokens_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
        )`},
	{Customer, "customers", `
        CREATE TABLE customers (
            id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
            user_id    BIGINT UNSIGNED NOT NULL,
            name       VARCHAR(255)    NOT NULL,
            email      VARCHAR(255)    NULL,
            phone      VARCHAR(64)     NULL,
            created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT fk_customers_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
        )`},
	{Billing, "billings", `
        CREATE TABLE billings (
            id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
            customer_id  BIGINT UNSIGNED NOT NULL,
            company      VARCHAR(255)    NULL,
            vat_number   VARCHAR(64)     NULL,
            address_line VARCHAR(255)    NOT NULL,
            city         VARCHAR(128)    NOT NULL,
            postal_code  VARCHAR(32)     NOT NULL,
            country      CHAR(2)         NOT NULL,
            CONSTRAINT fk_billings_customer FOREIGN KEY (customer_id) REFERENCES customers (id) ON DELETE CASCADE
        )`},
	{Product, "products", `
        CREATE TABLE products (
            id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
            user_id     BIGINT UNSIGNED NOT NULL,
            name        VARCHAR(255)    NOT NULL,
            description TEXT            NULL,
            unit_price  DECIMAL(12,2)   NOT NULL,
            vat_rate    DECIMAL(5,2)    NOT NULL DEFAULT 0,
            CONSTRAINT fk_products_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
        )`},
	{MailConfig, "mail_configs", `
        CREATE TABLE mail_configs (
            id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
            user_id      BIGINT UNSIGNED NOT NULL UNIQUE,
            sender_name  VARCHAR(255)    NOT NULL,
            sender_email VARCHAR(255)    NOT NULL,
            subject      VARCHAR(255)    NOT NULL,
            body         TEXT            NOT NULL,
            CONSTRAINT fk_mail_configs_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
        )`},
	{Invoice, "invoices", `
        CREATE TABLE invoices (
            id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
            user_id     BIGINT UNSIGNED NOT NULL,
            customer_id BIGINT UNSIGNED NOT NULL,
            billing_id  BIGINT UNSIGNED NOT NULL,
            number      VARCHAR(64)     NOT NULL,
            status      VARCHAR(16)     NOT NULL DEFAULT 'draft',
            issued_at   DATE            NOT NULL,
            due_at      DATE            NULL,
            total       DECIMAL(12,2)   NOT NULL DEFAULT 0,
            UNIQUE KEY uq_invoices_user_number (user_id, number),
            CONSTRAINT fk_invoices_user     FOREIGN KEY (user_id)     REFERENCES users (id),
            CONSTRAINT fk_invoices_customer FOREIGN KEY (customer_id) REFERENCES customers (id),
            CONSTRAINT fk_invoices_billing  FOREIGN KEY (billing_id)  REFERENCES billings (id)
        )`},
	{InvoiceDetail, "invoice_details", `
        CREATE TABLE invoice_details (
            id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
            invoice_id BIGINT UNSIGNED NOT NULL,
            product_id BIGINT UNSIGNED NOT NULL,
            quantity   DECIMAL(12,3)   NOT NULL,
            unit_price DECIMAL(12,2)   NOT NULL,
            vat_rate   DECIMAL(5,2)    NOT NULL DEFAULT 0,
            CONSTRAINT fk_invoice_details_invoice FOREIGN KEY (invoice_id) REFERENCES invoices (id) ON DELETE CASCADE,
            CONSTRAINT fk_invoice_details_product FOREIGN KEY (product_id) REFERENCES products (id)
        )`},
}

// Entities returns entity names in migration order.
func Entities() []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.name
	}
	return out
}

// Migrations returns one migration per entity, all targeting id.
func Migrations(id database.ID) []migrate.Migration {
	out := make([]migrate.Migration, 0, len(entities))
	for _, e := range entities {
		out = append(out, migrate.Migration{
			Name:     e.name,
			Database: id,
			Up:       []string{e.ddl + tableOpts},
			Down:     []string{"DROP TABLE IF EXISTS " + e.table},
		})
	}
	return out
}
