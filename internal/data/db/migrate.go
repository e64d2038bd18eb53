package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/terrenos-crm-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Identity + auth
		// =========================
		&types.User{},
		&types.UserToken{},

		// =========================
		// Inventory (read-only catalog)
		// =========================
		&types.Proyecto{},
		&types.Barrio{},
		&types.Cuadra{},
		&types.CategoriaTerreno{},
		&types.Terreno{},
		&types.DocumentoTerreno{},

		// =========================
		// CRM pipeline
		// =========================
		&types.Embudo{},
		&types.Lead{},
		&types.Negocio{},
		&types.Seguimiento{},

		// =========================
		// WhatsApp inbox
		// =========================
		&types.WhatsappSession{},
		&types.WhatsappConversation{},
		&types.WhatsappMessage{},
		&types.WhatsappAutoReply{},
	)
}

// EnsureCRMIndexes adds the composite indexes the list endpoints sort and
// filter on. Statements are valid on both postgres and sqlite.
func EnsureCRMIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"idx_terrenos_disponibles", `CREATE INDEX IF NOT EXISTS idx_terrenos_disponibles ON terrenos (idproyecto, estado, condicion);`},
		{"idx_negocios_etapa_created", `CREATE INDEX IF NOT EXISTS idx_negocios_etapa_created ON negocios (etapa, created_at DESC);`},
		{"idx_seguimientos_pendientes", `CREATE INDEX IF NOT EXISTS idx_seguimientos_pendientes ON seguimientos (proximo_seguimiento, recordatorio_enviado);`},
		{"idx_whatsapp_messages_conv_sent", `CREATE INDEX IF NOT EXISTS idx_whatsapp_messages_conv_sent ON whatsapp_messages (conversation_id, sent_at);`},
		{"idx_whatsapp_messages_outbox", `CREATE INDEX IF NOT EXISTS idx_whatsapp_messages_outbox ON whatsapp_messages (direction, status, sent_at);`},
		{"idx_whatsapp_auto_replies_match", `CREATE INDEX IF NOT EXISTS idx_whatsapp_auto_replies_match ON whatsapp_auto_replies (is_active, is_greeting, priority DESC);`},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...", "driver", s.driver)
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureCRMIndexes(s.db); err != nil {
		s.log.Error("CRM index migration failed", "error", err)
		return err
	}
	return nil
}
