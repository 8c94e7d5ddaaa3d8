package cvm

import "testing"

const listingPage = `<html><body>
<table id="grdDocumentos">
<thead><tr><th>Categoria</th><th>Data Referência</th><th>Ações</th></tr></thead>
<tbody>
<tr>
  <td>DFP - Demonstrações Financeiras Padronizadas</td>
  <td>31/12/2022</td>
  <td><i class="fi-download" title="Download"></i></td>
</tr>
<tr>
  <td>DFP - Demonstrações Financeiras Padronizadas</td>
  <td></td>
  <td><i class="fi-download" title="Download"></i></td>
</tr>
<tr>
  <td>Comunicado ao Mercado</td>
  <td>15/05/2022</td>
  <td><i class="fi-eye" title="Visualizar"></i></td>
</tr>
</tbody>
</table>
</body></html>`

func TestParseListing(t *testing.T) {
	dates, err := parseListing(listingPage)
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 2 {
		t.Fatalf("rows = %d, want only the 2 downloadable rows", len(dates))
	}
	if dates[0] != "31/12/2022" {
		t.Errorf("dates[0] = %q, want 31/12/2022", dates[0])
	}
	if dates[1] != "" {
		t.Errorf("dates[1] = %q, want empty for a row without a date", dates[1])
	}
}

func TestParseListingEmptyPage(t *testing.T) {
	dates, err := parseListing("<html><body><p>Nenhum documento encontrado</p></body></html>")
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 0 {
		t.Errorf("rows = %d, want none", len(dates))
	}
}
