package cvm

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"cvm-dfp-bot/internal/logger"
)

// ENETBaseURL is the external consulta page of the RAD/ENET portal.
const ENETBaseURL = "https://www.rad.cvm.gov.br/ENET/frmConsultaExternaCVM.aspx"

// dfpCategoryLabel is the category option the flow selects.
const dfpCategoryLabel = "DFP - Demonstrações Financeiras Padronizadas"

// downloadIconSelector matches the per-row download icons of the listing.
const downloadIconSelector = `i.fi-download[title="Download"]`

// selectCategoryScript picks the DFP option on the native select. Returns
// false when the select or the option is not on the page, which signals the
// chosen-widget fallback.
const selectCategoryScript = `(() => {
	const select = document.querySelector('#cboCategorias');
	if (!select) return false;
	const option = Array.from(select.options).find(
		o => o.textContent.trim() === '` + dfpCategoryLabel + `');
	if (!option) return false;
	select.value = option.value;
	select.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})()`

// chosenCategoryScript picks the DFP entry inside an open chosen widget.
const chosenCategoryScript = `(() => {
	const items = document.querySelectorAll('#cboCategorias_chosen .chosen-results li');
	for (const item of items) {
		if (item.textContent.includes('` + dfpCategoryLabel + `')) {
			item.dispatchEvent(new MouseEvent('mouseup', {bubbles: true}));
			return true;
		}
	}
	return false;
})()`

// removeOverlayScript clears jQuery UI modal overlays that swallow clicks.
const removeOverlayScript = `(() => {
	document.querySelectorAll('.ui-widget-overlay.ui-front').forEach(el => el.remove());
	return true;
})()`

// Flow runs the portal interaction for one company.
type Flow struct {
	browser *Browser
}

// NewFlow wraps a running browser.
func NewFlow(b *Browser) *Flow {
	return &Flow{browser: b}
}

// OpenCompany navigates to the consulta page pre-filtered by CVM code.
func (f *Flow) OpenCompany(ctx context.Context, codigoCVM string) error {
	url := fmt.Sprintf("%s?tipoconsulta=CVM&codigoCVM=%s", ENETBaseURL, codigoCVM)
	logger.Info(ctx, "Opening ENET", "url", url)
	return f.browser.Run(
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
}

// ApplyFilters restricts the listing to DFP filings inside the date window
// and runs the query. Dates use the portal's dd/mm/yyyy convention.
func (f *Flow) ApplyFilters(ctx context.Context, startDate, endDate string) error {
	if err := f.browser.Run(
		chromedp.Click("#rdPeriodo"),
		chromedp.SetValue("#txtDataIni", startDate),
		chromedp.Evaluate(`document.querySelector('#txtDataIni').dispatchEvent(new Event('blur'))`, nil),
		chromedp.SetValue("#txtDataFim", endDate),
		chromedp.Evaluate(`document.querySelector('#txtDataFim').dispatchEvent(new Event('blur'))`, nil),
	); err != nil {
		return fmt.Errorf("filling period filter: %w", err)
	}
	if err := f.selectDFPCategory(ctx); err != nil {
		return err
	}
	if err := f.browser.Run(
		chromedp.Click("#btnConsulta"),
		chromedp.WaitVisible(downloadIconSelector),
	); err != nil {
		return fmt.Errorf("running consulta: %w", err)
	}
	return nil
}

// selectDFPCategory tries the native select first; legacy deployments
// replace it with a chosen widget, sometimes behind a modal overlay.
func (f *Flow) selectDFPCategory(ctx context.Context) error {
	var selected bool
	if err := f.browser.Run(chromedp.Evaluate(selectCategoryScript, &selected)); err == nil && selected {
		return nil
	}
	logger.Info(ctx, "Native category select unavailable, using chosen fallback")

	var removed bool
	_ = f.browser.Run(chromedp.Evaluate(removeOverlayScript, &removed))

	if err := f.browser.Run(chromedp.Click("#cboCategorias_chosen")); err != nil {
		return fmt.Errorf("category selector not found: %w", err)
	}
	var picked bool
	if err := f.browser.Run(chromedp.Evaluate(chosenCategoryScript, &picked)); err != nil {
		return fmt.Errorf("picking DFP category: %w", err)
	}
	if !picked {
		return fmt.Errorf("DFP category not present in %s", "#cboCategorias_chosen")
	}
	return nil
}
