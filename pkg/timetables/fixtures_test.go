package timetables

import (
	"context"
	"fmt"
	"sync"
)

const planSlice09 = `<?xml version='1.0' encoding='UTF-8'?>
<timetable station="Berlin Hbf" eva="8011160">
  <s id="s1-2610180915-1">
    <tl f="F" t="p" o="80" c="ICE" n="513"/>
    <ar pt="2610180910" pp="7" ppth="Hamburg Hbf"/>
    <dp pt="2610180915" pp="7" ppth="Halle(Saale)Hbf|Erfurt Hbf|München Hbf"/>
  </s>
  <s id="s2-2610180905-1" eva="8011160">
    <tl f="D" t="p" o="800" c="RE" n="3512"/>
    <dp pt="2610180905" pp="3" l="1" ppth="Potsdam Hbf"/>
    <m id="remark-1" t="q" c="80" ts="2610180800">Bike reservation required</m>
  </s>
  <s id="s3-2610180930-9">
    <tl c="RB" n="18402"/>
    <ar pt="2610180930" pp="12" ppth="Cottbus Hbf"/>
  </s>
  <s id="s4-2610180850-1">
    <tl c="S" n="7"/>
    <dp pt="2610180850" pp="15" ppth="Ahrensfelde"/>
  </s>
</timetable>`

const planSlice10 = `<timetable station="Berlin Hbf" eva="8011160">
  <s id="s5-2610181000-1">
    <tl c="S" n="3" o="800337"/>
    <dp pt="2610181000" pp="16" l="3" ppth="Erkner"/>
  </s>
  <s id="s6-2610181030-1">
    <tl c="IC" n="2241"/>
    <dp pt="2610181030" pp="6" ppth="Dresden Hbf"/>
  </s>
</timetable>`

const fullChanges = `<timetable station="Berlin Hbf" eva="8011160">
  <s id="s1-2610180915-1" eva="8011160">
    <m id="r2" t="h" cat="Information" pr="2" from="2610180000" to="2610182359" ts="2610180700">Construction works</m>
    <dp ct="2610180920" cp="8">
      <m id="r1" t="d" c="43" ts="2610180845"/>
    </dp>
  </s>
  <s id="s2-2610180905-1" eva="8011160">
    <dp>
      <m id="r3" t="d" c="36" ts="2610180850"/>
    </dp>
  </s>
  <s id="s9-unplanned" eva="8011160">
    <dp ct="2610180940" cp="1"/>
  </s>
</timetable>`

const recentChanges = `<timetable station="Berlin Hbf" eva="8011160">
  <s id="s1-2610180915-1" eva="8011160">
    <dp ct="2610180925">
      <m id="r1" t="d" c="43" ts="2610180845"/>
      <m id="r4" t="d" c="47" ts="2610180905"/>
    </dp>
  </s>
  <s id="s5-2610181000-1" eva="8011160">
    <dp cs="c"/>
  </s>
</timetable>`

const stationsXML = `<stations>
  <station p="1|2|3|4|5|6|7|8" meta="8089021|8098160" name="Berlin Hbf" eva="8011160" ds100="BL" db="true"/>
  <station name="Berlin Hbf (tief)" eva="8098160" ds100="BLT"/>
  <station name="Berlin-Spandau" eva="8010404" ds100="BSPD"/>
  <station name="München Hbf" eva="8000261" ds100="MH"/>
  <station name="Frankfurt(M) Flughafen Fernbf" eva="8070003" ds100="FFLF"/>
</stations>`

// fakeClient serves canned payloads and records the requests it receives.
type fakeClient struct {
	mu sync.Mutex

	plans    map[string]string
	fchg     string
	rchg     string
	stations string
	err      error

	calls []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		plans: map[string]string{
			"261018/09": planSlice09,
			"261018/10": planSlice10,
		},
		fchg:     fullChanges,
		rchg:     recentChanges,
		stations: stationsXML,
	}
}

func (f *fakeClient) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeClient) FetchPlan(ctx context.Context, eva, date, hour string) ([]byte, error) {
	if err := f.record(fmt.Sprintf("plan/%s/%s/%s", eva, date, hour)); err != nil {
		return nil, err
	}
	return []byte(f.plans[date+"/"+hour]), nil
}

func (f *fakeClient) FetchFullChanges(ctx context.Context, eva string) ([]byte, error) {
	if err := f.record("fchg/" + eva); err != nil {
		return nil, err
	}
	return []byte(f.fchg), nil
}

func (f *fakeClient) FetchRecentChanges(ctx context.Context, eva string) ([]byte, error) {
	if err := f.record("rchg/" + eva); err != nil {
		return nil, err
	}
	return []byte(f.rchg), nil
}

func (f *fakeClient) FetchStation(ctx context.Context, pattern string) ([]byte, error) {
	if err := f.record("station/" + pattern); err != nil {
		return nil, err
	}
	return []byte(f.stations), nil
}
