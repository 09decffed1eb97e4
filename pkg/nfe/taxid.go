// Package nfe contiene utilidades de documentos fiscales brasileños (CNPJ/CPF)
// usados para cruzar la NFe con clientes, filiales y proveedores locales.
package nfe

import (
	"fmt"
	"unicode"
)

// pesos módulo 11 del CNPJ para el primer y segundo dígito verificador.
var (
	cnpjWeights1 = [12]int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = [13]int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// NormalizeTaxID deja solo dígitos: "12.345.678/0001-95" -> "12345678000195".
func NormalizeTaxID(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			out = append(out, byte(r))
		}
	}
	return string(out)
}

// IsCNPJ indica si el documento normalizado tiene largo de CNPJ.
func IsCNPJ(taxID string) bool { return len(NormalizeTaxID(taxID)) == 14 }

// IsCPF indica si el documento normalizado tiene largo de CPF.
func IsCPF(taxID string) bool { return len(NormalizeTaxID(taxID)) == 11 }

// ValidateCNPJ verifica los dos dígitos verificadores (módulo 11).
func ValidateCNPJ(taxID string) error {
	d := NormalizeTaxID(taxID)
	if len(d) != 14 {
		return fmt.Errorf("nfe: CNPJ debe tener 14 dígitos, se encontraron %d", len(d))
	}
	if allSame(d) {
		return fmt.Errorf("nfe: CNPJ inválido %s", d)
	}
	dv1 := checkDigit(d[:12], cnpjWeights1[:])
	dv2 := checkDigit(d[:12]+string(dv1), cnpjWeights2[:])
	if d[12] != dv1 || d[13] != dv2 {
		return fmt.Errorf("nfe: dígitos verificadores del CNPJ inválidos: esperado %c%c, recibido %s", dv1, dv2, d[12:])
	}
	return nil
}

// ValidateCPF verifica los dos dígitos verificadores del CPF.
func ValidateCPF(taxID string) error {
	d := NormalizeTaxID(taxID)
	if len(d) != 11 {
		return fmt.Errorf("nfe: CPF debe tener 11 dígitos, se encontraron %d", len(d))
	}
	if allSame(d) {
		return fmt.Errorf("nfe: CPF inválido %s", d)
	}
	w1 := []int{10, 9, 8, 7, 6, 5, 4, 3, 2}
	w2 := []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}
	dv1 := checkDigit(d[:9], w1)
	dv2 := checkDigit(d[:9]+string(dv1), w2)
	if d[9] != dv1 || d[10] != dv2 {
		return fmt.Errorf("nfe: dígitos verificadores del CPF inválidos")
	}
	return nil
}

// ValidateTaxID valida como CNPJ o CPF según la cantidad de dígitos.
func ValidateTaxID(taxID string) error {
	switch {
	case IsCNPJ(taxID):
		return ValidateCNPJ(taxID)
	case IsCPF(taxID):
		return ValidateCPF(taxID)
	default:
		return fmt.Errorf("nfe: documento %q no es CNPJ ni CPF", taxID)
	}
}

func checkDigit(base string, weights []int) byte {
	var sum int
	for i := 0; i < len(base); i++ {
		sum += int(base[i]-'0') * weights[i]
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + (11 - r))
}

func allSame(d string) bool {
	for i := 1; i < len(d); i++ {
		if d[i] != d[0] {
			return false
		}
	}
	return true
}
