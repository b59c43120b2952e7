package normalize

// Built-in mapping tables for the known sources. Field names follow the
// upstream payloads (CV CRM and Sienge use Portuguese keys).
var builtin = map[string]Mapping{
	"cv_vendas": {
		{Source: "idproposta", Rename: "id_proposta", Kind: KindNumber},
		{Source: "empreendimento", Kind: KindString},
		{Source: "unidade", Kind: KindString},
		{Source: "cliente", Kind: KindString},
		{Source: "corretor", Kind: KindString},
		{Source: "imobiliaria", Kind: KindString},
		{Source: "situacao", Kind: KindString},
		{Source: "data_venda", Kind: KindDate},
		{Source: "data_contrato", Kind: KindDate},
		{Source: "valor_contrato", Kind: KindCurrency},
		{Source: "valor_proposta", Kind: KindCurrency},
		{Rename: "ano_venda", Kind: KindDerive, Derive: yearOf("data_venda")},
	},
	"cv_leads": {
		{Source: "idlead", Rename: "id_lead", Kind: KindNumber},
		{Source: "nome", Kind: KindString},
		{Source: "email", Kind: KindString},
		{Source: "telefone", Kind: KindString},
		{Source: "origem", Kind: KindString},
		{Source: "midia", Kind: KindString},
		{Source: "situacao", Kind: KindString},
		{Source: "empreendimento", Kind: KindString},
		{Source: "corretor", Kind: KindString},
		{Source: "data_cad", Rename: "data_cadastro", Kind: KindDate},
		{Source: "data_ultima_interacao", Kind: KindDate},
	},
	"cv_repasses": {
		{Source: "idrepasse", Rename: "id_repasse", Kind: KindNumber},
		{Source: "idproposta", Rename: "id_proposta", Kind: KindNumber},
		{Source: "empreendimento", Kind: KindString},
		{Source: "unidade", Kind: KindString},
		{Source: "cliente", Kind: KindString},
		{Source: "status_repasse", Kind: KindString},
		{Source: "banco", Kind: KindString},
		{Source: "data_status", Kind: KindDate},
		{Source: "valor_financiado", Kind: KindCurrency},
		{Source: "valor_subsidio", Kind: KindCurrency},
		{Source: "valor_fgts", Kind: KindCurrency},
	},
	"cv_repasses_workflow": {
		{Source: "idrepasse", Rename: "id_repasse", Kind: KindNumber},
		{Source: "etapa", Kind: KindString},
		{Source: "data_entrada", Kind: KindDate},
		{Source: "data_saida", Kind: KindDate},
		{Source: "tempo_na_etapa", Rename: "dias_na_etapa", Kind: KindNumber},
		{Source: "responsavel", Kind: KindString},
	},
	"sienge_vendas": {
		{Source: "id", Rename: "id_venda", Kind: KindNumber},
		{Source: "enterpriseId", Rename: "id_empreendimento", Kind: KindNumber},
		{Source: "enterpriseName", Rename: "empreendimento", Kind: KindString},
		{Source: "unitName", Rename: "unidade", Kind: KindString},
		{Source: "customerName", Rename: "cliente", Kind: KindString},
		{Source: "situation", Rename: "situacao", Kind: KindString},
		{Source: "contractDate", Rename: "data_contrato", Kind: KindDate},
		{Source: "value", Rename: "valor_contrato", Kind: KindCurrency},
	},
	"vgv_empreendimentos": {
		{Source: "idempreendimento", Rename: "id_empreendimento", Kind: KindNumber},
		{Source: "nome", Kind: KindString},
		{Source: "regiao", Kind: KindString},
		{Source: "situacao_comercial", Kind: KindString},
		{Source: "data_lancamento", Kind: KindDate},
		{Source: "vgv_tabela", Kind: KindCurrency},
		{Source: "vgv_vendido", Kind: KindCurrency},
		{Source: "unidades_totais", Kind: KindNumber},
		{Source: "unidades_vendidas", Kind: KindNumber},
	},
}

// ForSource returns the built-in mapping for a source name.
func ForSource(name string) (Mapping, bool) {
	m, ok := builtin[name]
	return m, ok
}

// yearOf derives the four-digit year of a date field, empty when the
// field is missing or unparsable.
func yearOf(field string) func(map[string]any) any {
	return func(rec map[string]any) any {
		iso := parseDate(rec[field])
		if len(iso) < 4 {
			return ""
		}
		return iso[:4]
	}
}
