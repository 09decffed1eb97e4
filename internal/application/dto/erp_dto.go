package dto

// ERPSyncRequest sincronización de productos puntuales. Concurrency <= 0 usa el valor configurado.
type ERPSyncRequest struct {
	ProductIDs  []int64 `json:"productIds"`
	Concurrency int     `json:"concurrency"`
}

// ERPSyncResult resultado por producto local.
type ERPSyncResult struct {
	ProductID int64  `json:"productId"`
	OK        bool   `json:"ok"`
	RemoteID  *int64 `json:"remoteId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ERPSyncSummary resumen de una sincronización.
type ERPSyncSummary struct {
	Total   int             `json:"total"`
	Synced  int             `json:"synced"`
	Failed  int             `json:"failed"`
	Results []ERPSyncResult `json:"results"`
}
