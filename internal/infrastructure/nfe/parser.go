// Package nfe convierte el XML de una NFe (con o sin envoltorio nfeProc) en un
// entity.NormalizedFiscalDocument. El nodo infNFe se busca en profundidad por
// nombre de tag porque el envoltorio varía según el emisor.
package nfe

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/Producao-api/internal/domain"
	"github.com/jhoicas/Producao-api/internal/domain/entity"
	pkgnfe "github.com/jhoicas/Producao-api/pkg/nfe"
)

// Parse lee el XML y extrae partes, ítems, totales y transporte.
func Parse(xmlBytes []byte) (*entity.NormalizedFiscalDocument, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, &domain.MappingError{Reason: domain.ReasonInvalidXML, Detail: err.Error(), Err: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, &domain.MappingError{Reason: domain.ReasonInvalidXML, Detail: "documento sin raíz"}
	}

	inf := FindFirst(root, "infNFe")
	if inf == nil {
		return nil, &domain.MappingError{Reason: domain.ReasonMissingInvoice}
	}

	out := &entity.NormalizedFiscalDocument{
		Number:         text(inf, "ide/nNF"),
		Series:         text(inf, "ide/serie"),
		IssuedAt:       issueDate(inf),
		IssuerTaxID:    partyTaxID(inf.FindElement("emit")),
		IssuerName:     text(inf, "emit/xNome"),
		RecipientTaxID: partyTaxID(inf.FindElement("dest")),
		RecipientName:  text(inf, "dest/xNome"),
		TotalProducts:  dec(inf, "total/ICMSTot/vProd"),
		TotalFreight:   dec(inf, "total/ICMSTot/vFrete"),
		TotalTaxes:     taxes(inf),
		TotalInvoice:   dec(inf, "total/ICMSTot/vNF"),
		CarrierName:    text(inf, "transp/transporta/xNome"),
	}
	out.Volumes, out.GrossWeight, out.NetWeight = volumes(inf)

	for _, det := range inf.SelectElements("det") {
		prod := det.SelectElement("prod")
		if prod == nil {
			continue
		}
		out.Items = append(out.Items, entity.FiscalItem{
			Code:        text(prod, "cProd"),
			Description: text(prod, "xProd"),
			NCM:         text(prod, "NCM"),
			CFOP:        text(prod, "CFOP"),
			Unit:        text(prod, "uCom"),
			UnitPrice:   dec(prod, "vUnCom"),
			Quantity:    dec(prod, "qCom"),
			Total:       dec(prod, "vProd"),
		})
	}

	out.AccessKey = accessKey(root, inf, out.Number, out.Series)
	return out, nil
}

// FindFirst recorre el árbol en profundidad (preorden) y devuelve el primer elemento con ese tag local.
func FindFirst(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	if el.Tag == tag {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := FindFirst(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// accessKey: Id firmado de infNFe → chNFe del protocolo → número-serie → placeholder generado.
func accessKey(root, inf *etree.Element, number, series string) string {
	if id := strings.TrimSpace(inf.SelectAttrValue("Id", "")); id != "" {
		return strings.TrimPrefix(id, "NFe")
	}
	if prot := FindFirst(root, "protNFe"); prot != nil {
		if ch := text(prot, "infProt/chNFe"); ch != "" {
			return ch
		}
	}
	if number != "" {
		return fmt.Sprintf("%s-%s", number, series)
	}
	return "gen-" + uuid.New().String()
}

// partyTaxID CNPJ preferido, CPF como respaldo; solo dígitos.
func partyTaxID(party *etree.Element) string {
	if party == nil {
		return ""
	}
	if cnpj := text(party, "CNPJ"); cnpj != "" {
		return pkgnfe.NormalizeTaxID(cnpj)
	}
	return pkgnfe.NormalizeTaxID(text(party, "CPF"))
}

func issueDate(inf *etree.Element) time.Time {
	if s := text(inf, "ide/dhEmi"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
	}
	if s := text(inf, "ide/dEmi"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// taxes vTotTrib si viene informado; si no, suma de ICMS, IPI, PIS y COFINS.
func taxes(inf *etree.Element) decimal.Decimal {
	if tot := dec(inf, "total/ICMSTot/vTotTrib"); !tot.IsZero() {
		return tot
	}
	sum := decimal.Zero
	for _, tag := range []string{"vICMS", "vIPI", "vPIS", "vCOFINS"} {
		sum = sum.Add(dec(inf, "total/ICMSTot/"+tag))
	}
	return sum
}

// volumes suma qVol de todos los vol; si la suma es cero cuenta un volumen por vol declarado.
func volumes(inf *etree.Element) (int, decimal.Decimal, decimal.Decimal) {
	transp := inf.SelectElement("transp")
	if transp == nil {
		return 0, decimal.Zero, decimal.Zero
	}
	vols := transp.SelectElements("vol")
	count := 0
	gross, net := decimal.Zero, decimal.Zero
	for _, v := range vols {
		if n, err := strconv.Atoi(text(v, "qVol")); err == nil {
			count += n
		}
		gross = gross.Add(dec(v, "pesoB"))
		net = net.Add(dec(v, "pesoL"))
	}
	if count == 0 {
		count = len(vols)
	}
	return count, gross, net
}

func text(el *etree.Element, path string) string {
	if el == nil {
		return ""
	}
	found := el.FindElement(path)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.Text())
}

func dec(el *etree.Element, path string) decimal.Decimal {
	s := text(el, path)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "", "UTF-8", "UTF8":
		return input, nil
	case "ISO-8859-1", "ISO8859-1", "LATIN1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	case "WINDOWS-1252", "CP1252":
		return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("charset no soportado: %s", label)
	}
}
