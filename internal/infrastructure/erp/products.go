package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ProductPayload cuerpo de creación/actualización de producto en el ERP.
type ProductPayload struct {
	Name       string            `json:"name"`
	Code       string            `json:"code"`
	Price      float64           `json:"price"`
	Unit       string            `json:"unit"`
	Type       string            `json:"type"`   // P = produto
	Format     string            `json:"format"` // S = simples
	Status     string            `json:"status"` // A = ativo
	Dimensions *Dimensions       `json:"dimensions,omitempty"`
	Stock      *Stock            `json:"stock,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Dimensions bloque opcional de peso/medidas.
type Dimensions struct {
	NetWeight   float64 `json:"netWeight,omitempty"`
	GrossWeight float64 `json:"grossWeight,omitempty"`
}

// Stock bloque opcional de inventario.
type Stock struct {
	Minimum float64 `json:"minimum,omitempty"`
	Maximum float64 `json:"maximum,omitempty"`
}

type createResponse struct {
	Data struct {
		ID int64 `json:"id"`
	} `json:"data"`
}

// CreateProduct POST /products y devuelve data.id (0 si el ERP no lo informó).
func (c *Client) CreateProduct(ctx context.Context, p ProductPayload) (int64, error) {
	resp, err := c.Call(ctx, http.MethodPost, "/products", p)
	if err != nil {
		return 0, err
	}
	if !resp.OK() {
		return 0, apiError(resp)
	}
	var out createResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return 0, fmt.Errorf("erp: respuesta de creación inválida: %w", err)
	}
	return out.Data.ID, nil
}

// UpdateProduct PUT /products/{id}.
func (c *Client) UpdateProduct(ctx context.Context, remoteID int64, p ProductPayload) error {
	resp, err := c.Call(ctx, http.MethodPut, fmt.Sprintf("/products/%d", remoteID), p)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return apiError(resp)
	}
	return nil
}
