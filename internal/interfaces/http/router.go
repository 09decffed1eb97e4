package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Producao-api/internal/domain/repository"
)

// Roles con permiso para disparar importaciones, crear lotes y sincronizar.
var writeRoles = []string{"admin", "operador"}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Import    ImportService
	Batches   BatchService
	ERP       ERPService // nil si el ERP no está configurado
	Configs   repository.ImapConfigRepository
	Ledger    repository.ImportLedgerRepository
	DB        Pinger
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", Health(deps.DB))

	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	write := RequireRole(writeRoles...)

	// Importación de NFe por buzón
	importHandler := NewImportHandler(deps.Import, deps.Configs, deps.Ledger)
	imap := api.Group("/imap")
	imap.Post("/import", write, importHandler.ImportAll)
	imap.Post("/configs/:configId/import", write, importHandler.ImportConfig)
	imap.Put("/configs/:configId/activate", RequireRole("admin"), importHandler.Activate)
	imap.Get("/ledger", importHandler.Ledger)

	// Lotes
	batchHandler := NewBatchHandler(deps.Batches)
	erpHandler := NewERPHandler(deps.ERP)
	lotes := api.Group("/lotes")
	lotes.Post("/", write, batchHandler.Create)
	lotes.Post("/:id/erp-sync", write, erpHandler.SyncBatch)

	// ERP
	api.Post("/erp/products/sync", write, erpHandler.SyncProducts)
}
