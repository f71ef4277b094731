package sqlinline

const QSelectProviderCredential = `--sql 6d6a4f53-dc50-412d-b2d1-b18be5177571
select token
from provider_credentials
where provider = $1::text
  and revoked_at is null
limit 1;
`

const QUpsertProviderCredential = `--sql 0b9f0d8e-5b6e-4c38-9a52-2f1f7a1c64d3
insert into provider_credentials (provider, token, created_at, updated_at)
values ($1::text, $2::text, now(), now())
on conflict (provider) do update set
    token = excluded.token,
    revoked_at = null,
    updated_at = now();
`
